package initcmder_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/eduverse/cmd/eduverse/init"
	"github.com/papercomputeco/eduverse/pkg/config"
)

var _ = Describe("NewInitCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Use).To(Equal("init"))
	})

	It("accepts zero arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		err := cmd.Args(cmd, []string{"extra"})
		Expect(err).To(HaveOccurred())
	})

	It("has a --preset flag", func() {
		cmd := initcmder.NewInitCmd()
		f := cmd.Flags().Lookup("preset")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal(""))
	})
})

var _ = Describe("Init command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "eduverse-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	It("creates a .eduverse directory in the current directory", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".eduverse"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
	})

	It("creates a config.toml with default values", func() {
		Expect(execute()).To(Succeed())

		cfg := loadConfig(tmpDir)
		Expect(cfg.Version).To(Equal(config.CurrentV))
		Expect(cfg.Storage.Driver).To(Equal(config.DriverSQLite))
		Expect(cfg.Cache.LocalEnabled).To(BeTrue())
		Expect(cfg.API.Listen).To(Equal(":8081"))
	})

	It("does not overwrite existing contents when already initialized", func() {
		dir := filepath.Join(tmpDir, ".eduverse")
		Expect(os.MkdirAll(dir, 0o755)).To(Succeed())

		profile := filepath.Join(dir, "profile.json")
		Expect(os.WriteFile(profile, []byte(`{"user_id":"u1"}`), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[storage]\ndriver = \"memory\"\n"), 0o644)).To(Succeed())

		Expect(execute()).To(Succeed())

		data, err := os.ReadFile(profile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`{"user_id":"u1"}`))

		cfg := loadConfig(tmpDir)
		Expect(cfg.Storage.Driver).To(Equal(config.DriverMemory))
	})

	Describe("--preset with storage presets", func() {
		It("creates config.toml with the postgres preset", func() {
			Expect(execute("--preset", "postgres")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Driver).To(Equal(config.DriverPostgres))
			Expect(cfg.Storage.PostgresDSN).To(HavePrefix("postgres://"))
		})

		It("creates config.toml with the turso preset", func() {
			Expect(execute("--preset", "turso")).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Driver).To(Equal(config.DriverLibSQL))
			Expect(cfg.Storage.LibSQLURL).NotTo(BeEmpty())
		})

		It("rejects unknown preset names", func() {
			err := execute("--preset", "mongodb")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unknown preset"))
		})

		It("overwrites config.toml when re-run with a different preset", func() {
			Expect(execute("--preset", "memory")).To(Succeed())
			Expect(loadConfig(tmpDir).Storage.Driver).To(Equal(config.DriverMemory))

			Expect(execute("--preset", "postgres")).To(Succeed())
			Expect(loadConfig(tmpDir).Storage.Driver).To(Equal(config.DriverPostgres))
		})
	})

	Describe("--preset with remote URL", func() {
		It("fetches the remote config and keeps defaults for absent keys", func() {
			remoteCfg := `version = 0

[storage]
driver = "postgres"
postgres_dsn = "postgres://study@db:5432/study"

[events]
enabled = true
brokers = ["kafka:9092"]
`
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				fmt.Fprint(w, remoteCfg)
			}))
			defer server.Close()

			Expect(execute("--preset", server.URL)).To(Succeed())

			cfg := loadConfig(tmpDir)
			Expect(cfg.Storage.Driver).To(Equal(config.DriverPostgres))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://study@db:5432/study"))
			Expect(cfg.Events.Enabled).To(BeTrue())
			Expect(cfg.Events.Brokers).To(Equal([]string{"kafka:9092"}))
			Expect(cfg.Cache.LocalEnabled).To(BeTrue())
		})

		It("returns error for non-200 HTTP response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("HTTP 404"))
		})

		It("returns error for invalid TOML from URL", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, "this is not valid toml [[[")
			}))
			defer server.Close()

			err := execute("--preset", server.URL)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("parsing"))
		})

		It("returns error for unreachable URL", func() {
			err := execute("--preset", "http://127.0.0.1:1")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("fetching remote config"))
		})
	})
})

// loadConfig reads and parses the config.toml from the .eduverse directory
// within the given base directory.
func loadConfig(baseDir string) *config.Config {
	configPath := filepath.Join(baseDir, ".eduverse", "config.toml")
	data, err := os.ReadFile(configPath)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	cfg := &config.Config{}
	err = toml.Unmarshal(data, cfg)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return cfg
}
