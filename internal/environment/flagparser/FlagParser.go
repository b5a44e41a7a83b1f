package flagparser

import (
	"flag"
	"fmt"
	"os"
)

// ParseFlags reads the passed program arguments
func ParseFlags() MainFlags {

	var aliases []alias

	// Is disabled during testing, as otherwise it will raise an error if called in the test's init() function,
	// which replaces the arguments
	if DisableParsing {
		return MainFlags{}
	}

	passedFlags := flag.FlagSet{}
	versionFlagLong := passedFlags.Bool("version", false, "Show version info")
	versionFlagShort := passedFlags.Bool("v", false, "alias")
	aliases = append(aliases, alias{
		Long:  "version",
		Short: "v",
	})
	configDirFlagLong := passedFlags.String("config-dir", "", "Sets the config directory. Same as env variable RELAY_CONFIG_DIR")
	configDirFlagShort := passedFlags.String("cd", "", "alias")
	aliases = append(aliases, alias{
		Long:  "config-dir",
		Short: "cd",
	})
	dataDirFlagLong := passedFlags.String("data", "", "Sets the data directory. Same as env variable RELAY_DATA_DIR")
	dataDirFlagShort := passedFlags.String("d", "", "alias")
	aliases = append(aliases, alias{
		Long:  "data",
		Short: "d",
	})
	payloadFlagLong := passedFlags.String("payload", "", "Reads the job payload from a file instead of env variable RELAY_WORKFLOW_DATA")
	payloadFlagShort := passedFlags.String("p", "", "alias")
	aliases = append(aliases, alias{
		Long:  "payload",
		Short: "p",
	})
	signalFlagLong := passedFlags.String("signal", "", "Sets the URL of the signal store. Same as env variable RELAY_SIGNAL_URL")
	signalFlagShort := passedFlags.String("s", "", "alias")
	aliases = append(aliases, alias{
		Long:  "signal",
		Short: "s",
	})

	passedFlags.Usage = showUsage(passedFlags, aliases)
	err := passedFlags.Parse(os.Args[1:])

	if err != nil {
		if err.Error() == "flag: help requested" {
			os.Exit(0)
		}
		os.Exit(2)
	}

	result := MainFlags{
		ShowVersion: *versionFlagShort || *versionFlagLong,
		ConfigDir:   getAliasedString(configDirFlagLong, configDirFlagShort),
		DataDir:     getAliasedString(dataDirFlagLong, dataDirFlagShort),
		PayloadFile: getAliasedString(payloadFlagLong, payloadFlagShort),
		SignalUrl:   getAliasedString(signalFlagLong, signalFlagShort),
	}
	result.setBoolValues()
	return result
}

func showUsage(flags flag.FlagSet, aliases []alias) func() {
	return func() {
		fmt.Print("Usage:\n\n")
		flags.VisitAll(func(f *flag.Flag) {
			if isAlias(f.Name, aliases) {
				return
			}
			output := "--" + f.Name
			aliasExists, aliasName := hasAlias(f.Name, aliases)
			if aliasExists {
				output = "-" + aliasName + ", " + output
			}
			if f.DefValue == "" {
				output = output + " <string>"
			}
			fmt.Printf("%-30s %s\n", output, f.Usage)
		})
	}
}

func getAliasedString(flag1, flag2 *string) string {
	if *flag1 != "" {
		return *flag1
	}
	return *flag2
}

// MainFlags holds info for the parsed program arguments
type MainFlags struct {
	ShowVersion      bool
	ConfigDir        string
	DataDir          string
	PayloadFile      string
	SignalUrl        string
	IsConfigDirSet   bool
	IsDataDirSet     bool
	IsPayloadFileSet bool
	IsSignalUrlSet   bool
}

func (mf *MainFlags) setBoolValues() {
	mf.IsConfigDirSet = mf.ConfigDir != ""
	mf.IsDataDirSet = mf.DataDir != ""
	mf.IsPayloadFileSet = mf.PayloadFile != ""
	mf.IsSignalUrlSet = mf.SignalUrl != ""
}

type alias struct {
	Long  string
	Short string
}

func isAlias(value string, aliases []alias) bool {
	for _, name := range aliases {
		if name.Short == value {
			return true
		}
	}
	return false
}
func hasAlias(value string, aliases []alias) (bool, string) {
	for _, name := range aliases {
		if name.Long == value {
			return true, name.Short
		}
	}
	return false, ""
}
