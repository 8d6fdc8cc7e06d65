package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sercanarga/pciscope/internal/config"
)

var (
	flagVerbose   int
	flagMachine   bool
	flagMachineMM bool
	flagHex       int
	flagSlot      string
	flagID        string
	flagIDsPath   string
	flagDebug     bool
	flagNoColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "pciscope",
	Short: "PCI configuration-space decoder",
	Long: `pciscope lists PCI devices and decodes their configuration space:
identity, command/status bits, base address regions, expansion ROM,
bridge windows, capabilities, and Vital Product Data.

Device enumeration and config access go through Linux sysfs; device and
vendor names come from the system pci.ids database.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		if flagDebug {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if flagNoColor || (cfg.Color != nil && !*cfg.Color) {
			color.NoColor = true
		}
		if flagVerbose == 0 {
			flagVerbose = cfg.Verbosity
		}
		if flagIDsPath == "" {
			flagIDsPath = cfg.PCIIDsPath
		}
		return runList()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.Flags().CountVarP(&flagVerbose, "verbose", "v", "be verbose (-vv, -vvv for more)")
	rootCmd.Flags().BoolVarP(&flagMachine, "machine", "m", false, "machine-readable one-line output")
	rootCmd.Flags().BoolVar(&flagMachineMM, "mm", false, "machine-readable key:value output")
	rootCmd.Flags().CountVarP(&flagHex, "hex", "x", "hex dump of config space (-xx, -xxx, -xxxx for more)")
	rootCmd.Flags().StringVarP(&flagSlot, "slot", "s", "", "show only devices in the selected slot ([[domain:]bus:][slot][.func])")
	rootCmd.Flags().StringVarP(&flagID, "device", "d", "", "show only devices with the given IDs ([vendor]:[device])")
	rootCmd.Flags().StringVar(&flagIDsPath, "ids", "", "path to the pci.ids file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
