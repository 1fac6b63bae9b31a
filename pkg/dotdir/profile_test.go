package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/eduverse/pkg/dotdir"
)

var _ = Describe("dotdir.Manager profile", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no profile exists", func() {
		profile, err := m.LoadProfile(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile).To(BeNil())
	})

	It("loads a profile written by hand", func() {
		data := `{"user_id":"learner-1","last_fingerprint":"abc123"}`
		Expect(os.WriteFile(filepath.Join(tmpDir, "profile.json"), []byte(data), 0o600)).To(Succeed())

		profile, err := m.LoadProfile(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile.UserID).To(Equal("learner-1"))
		Expect(profile.LastFingerprint).To(Equal("abc123"))
	})

	It("returns an error for malformed JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "profile.json"), []byte("{"), 0o600)).To(Succeed())

		_, err := m.LoadProfile(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing profile")))
	})

	It("saves, overwrites and clears the profile", func() {
		Expect(m.SaveProfile(&dotdir.Profile{UserID: "first"}, tmpDir)).To(Succeed())
		Expect(m.SaveProfile(&dotdir.Profile{UserID: "second", LastFingerprint: "fp"}, tmpDir)).To(Succeed())

		profile, err := m.LoadProfile(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile).To(Equal(&dotdir.Profile{UserID: "second", LastFingerprint: "fp"}))

		Expect(m.ClearProfile(tmpDir)).To(Succeed())
		profile, err = m.LoadProfile(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(profile).To(BeNil())

		Expect(m.ClearProfile(tmpDir)).To(Succeed())
	})

	It("rejects a nil profile", func() {
		Expect(m.SaveProfile(nil, tmpDir)).To(MatchError("cannot save nil profile"))
	})
})
