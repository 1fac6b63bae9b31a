package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/eduverse/cmd/eduverse/config"
	"github.com/papercomputeco/eduverse/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "eduverse-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .eduverse dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".eduverse"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "storage.driver", "postgres"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			// Verify the config file was created
			_, err = os.Stat(filepath.Join(tmpDir, ".eduverse", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "invalid_key", "value"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "storage.driver"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "events.workers", "not-a-number"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "cache.ttl", "a week"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown storage drivers", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "storage.driver", "mongodb"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("persists the value", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"set", "cache.ttl", "72h"})
			Expect(cmd.Execute()).To(Succeed())

			cfger, err := config.NewConfiger("")
			Expect(err).NotTo(HaveOccurred())
			value, err := cfger.GetConfigValue("cache.ttl")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("72h0m0s"))
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			// First set a value
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetArgs([]string{"set", "storage.driver", "postgres"})
			err := setCmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			// Then get it
			getCmd := configcmder.NewConfigCmd()
			getCmd.SetArgs([]string{"get", "storage.driver"})
			err = getCmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs without error for unset key", func() {
			getCmd := configcmder.NewConfigCmd()
			getCmd.SetArgs([]string{"get", "storage.driver"})
			err := getCmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("prints only the value with --raw", func() {
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetOut(&bytes.Buffer{})
			setCmd.SetArgs([]string{"set", "adaptive.difficulty", "harder"})
			Expect(setCmd.Execute()).To(Succeed())

			var out bytes.Buffer
			getCmd := configcmder.NewConfigCmd()
			getCmd.SetOut(&out)
			getCmd.SetArgs([]string{"get", "adaptive.difficulty", "--raw"})
			Expect(getCmd.Execute()).To(Succeed())
			Expect(out.String()).To(Equal("harder\n"))
		})

		It("rejects unknown keys", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get", "invalid_key"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"get"})
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list"})
			err := cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs without error when config has values", func() {
			// Set some values first
			setCmd := configcmder.NewConfigCmd()
			setCmd.SetArgs([]string{"set", "storage.driver", "postgres"})
			err := setCmd.Execute()
			Expect(err).NotTo(HaveOccurred())

			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list"})
			err = cmd.Execute()
			Expect(err).NotTo(HaveOccurred())
		})

		It("groups keys by section", func() {
			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"list"})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("[storage]"))
			Expect(out.String()).To(ContainSubstring("[cache]"))
			Expect(out.String()).To(ContainSubstring("sweep_interval"))
		})

		It("lists a single section", func() {
			var out bytes.Buffer
			cmd := configcmder.NewConfigCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"list", "cache"})
			Expect(cmd.Execute()).To(Succeed())

			Expect(out.String()).To(ContainSubstring("[cache]"))
			Expect(out.String()).NotTo(ContainSubstring("[storage]"))
		})

		It("rejects unknown sections", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list", "extra"})
			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("unknown config section")))
		})

		It("rejects more than one argument", func() {
			cmd := configcmder.NewConfigCmd()
			cmd.SetArgs([]string{"list", "cache", "storage"})
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})
})
