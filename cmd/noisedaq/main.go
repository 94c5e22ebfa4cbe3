package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/someone42/noisedaq"
	"github.com/someone42/noisedaq/internal/noisedb"
)

var githash = "githash not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}

	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find
// config files and the filename and suffix. Sets some defaults.
func setupViper() error {
	viper.SetDefault("verbose", false)
	viper.SetDefault("capacity", noisedaq.DefaultCapacity)
	viper.SetDefault("exportdir", ".")
	viper.SetDefault("usedatabase", false)

	HOME, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	dotNoisedaq := filepath.Join(HOME, ".noisedaq")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotNoisedaq, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.AddConfigPath(filepath.FromSlash("/etc/noisedaq"))
	viper.AddConfigPath(dotNoisedaq)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probFile, err := os.OpenFile(pfname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("Could not open log file '%s'", pfname))
	}
	probLogger := log.New(probFile, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10, // megabytes after which new file is created
		MaxBackups: 4,
		MaxAge:     180, // days
		Compress:   true,
	})
	return probLogger
}

// channelConfig reads the "channel" section of the config file, falling back
// to the reference design settings.
func channelConfig() (noisedaq.ChannelConfig, error) {
	cfg := noisedaq.DefaultChannelConfig()
	if err := viper.UnmarshalKey("channel", &cfg); err != nil {
		return cfg, fmt.Errorf("could not read channel config: %s", err)
	}
	return cfg, cfg.Validate()
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	noisedaq.Build.Date = buildDate
	noisedaq.Build.Githash = githash
	noisedaq.Build.Summary = fmt.Sprintf("noisedaq version %s (git commit %s)", noisedaq.Build.Version, githash)

	printVersion := flag.Bool("version", false, "print version and quit")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is noisedaq version %s\n", noisedaq.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		os.Exit(0)
	}
	fmt.Printf("\nThis is %s\n", noisedaq.Build.Summary)

	// Start logging problems and updates to 2 log files.
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".noisedaq", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	noisedaq.ProblemLogger = startLogger(problemname)
	noisedaq.UpdateLogger = startLogger(logname)
	fmt.Printf("Logging problems       to %s\n", problemname)
	fmt.Printf("Logging client updates to %s\n\n", logname)

	// Find config file, creating it if needed, and read it.
	if err := setupViper(); err != nil {
		panic(err)
	}

	cfg, err := channelConfig()
	if err != nil {
		panic(err)
	}
	conv, err := noisedaq.NewSimConverter(cfg)
	if err != nil {
		panic(err)
	}
	if viper.GetBool("verbose") {
		conv.Inspect()
	}
	acq, err := noisedaq.NewAcquisition(conv, viper.GetInt("capacity"))
	if err != nil {
		panic(err)
	}

	abort := make(chan struct{})
	db := noisedb.DummyConnection()
	if viper.GetBool("usedatabase") {
		db = noisedb.StartConnection(abort)
	}

	exportDir := viper.GetString("exportdir")
	control := noisedaq.NewAcquireControl(acq, db, exportDir, nil)

	go noisedaq.RunClientUpdater(noisedaq.Ports.Status, abort)
	noisedaq.RunRPCServer(control, noisedaq.Ports.RPC, true)
	close(abort)
}
