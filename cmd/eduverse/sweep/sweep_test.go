package sweepcmder_test

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	sweepcmder "github.com/papercomputeco/eduverse/cmd/eduverse/sweep"
	"github.com/papercomputeco/eduverse/pkg/storage/sqlite"
	"github.com/papercomputeco/eduverse/pkg/study"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "eduverse"}
	root.PersistentFlags().BoolP("debug", "d", false, "")
	root.PersistentFlags().String("config-dir", "", "")
	root.AddCommand(sweepcmder.NewSweepCmd())
	return root
}

var _ = Describe("NewSweepCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := sweepcmder.NewSweepCmd()
		Expect(cmd.Use).To(Equal("sweep"))
	})

	It("registers the storage flags", func() {
		cmd := sweepcmder.NewSweepCmd()
		for _, name := range []string{"storage", "sqlite", "postgres", "libsql"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("rejects arguments", func() {
		cmd := sweepcmder.NewSweepCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).To(HaveOccurred())
	})
})

var _ = Describe("Sweep command execution", func() {
	var (
		ctx    context.Context
		dir    string
		dbPath string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		dbPath = filepath.Join(dir, "sweep.sqlite")

		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())

		now := time.Now()
		Expect(driver.PutEntry(ctx, &study.CacheEntry{
			Fingerprint: "fp-1",
			Kind:        study.KindSummary,
			Payload:     []byte(`{"text":"old"}`),
			CreatedAt:   now.Add(-48 * time.Hour),
			ExpiresAt:   now.Add(-time.Hour),
		})).To(Succeed())
		Expect(driver.PutEntry(ctx, &study.CacheEntry{
			Fingerprint: "fp-1",
			Kind:        study.KindDeepDive,
			Payload:     []byte(`{"text":"fresh"}`),
			CreatedAt:   now,
			ExpiresAt:   now.Add(time.Hour),
		})).To(Succeed())
		Expect(driver.Close()).To(Succeed())
	})

	It("removes only expired entries", func() {
		var out bytes.Buffer
		root := newRoot()
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs([]string{"sweep", "--config-dir", dir, "--storage", "sqlite", "--sqlite", dbPath})

		Expect(root.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Removed"))

		driver, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(driver.Close)

		entries, err := driver.ListEntries(ctx, "fp-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Kind).To(Equal(study.KindDeepDive))
	})

	It("fails on an unknown storage driver", func() {
		root := newRoot()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"sweep", "--config-dir", dir, "--storage", "mongodb"})

		Expect(root.Execute()).To(HaveOccurred())
	})
})
