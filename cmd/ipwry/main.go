// Command ipwry resolves IPv4/IPv6 addresses against local QQWry and
// IPv6Wry databases.
//
// Usage:
//
//	ipwry lookup 8.8.8.8 2400:3200:baba::1
//	ipwry lookup --format msgpack 1.2.3.4 > out.msgpack
//	ipwry info
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/proipinfo/ipwry"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack"
)

var VERSION = "0.1.0"

var logger = ipwry.GetLogger()

type options struct {
	config  string
	dataDir string
	v4Path  string
	v6Path  string
	debug   bool
	raw     bool
	format  string
}

func (o *options) loadConfig() (*ipwry.Config, error) {
	var (
		cfg *ipwry.Config
		err error
	)
	if o.config != "" {
		cfg, err = ipwry.LoadConfig(o.config)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = ipwry.DefaultConfig()
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.v4Path != "" {
		cfg.V4Path = o.v4Path
	}
	if o.v6Path != "" {
		cfg.V6Path = o.v6Path
	}
	if o.debug {
		cfg.Debug = true
	}
	if err := ipwry.InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "ipwry",
		Short:        "Offline IP geolocation over QQWry/IPv6Wry databases",
		Version:      VERSION,
		SilenceUsage: true,
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.config, "config", "c", "", "TOML config file")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory holding qqwry.dat and ipv6wry.db")
	flags.StringVar(&opts.v4Path, "v4", "", "IPv4 database path")
	flags.StringVar(&opts.v6Path, "v6", "", "IPv6 database path")
	flags.BoolVar(&opts.debug, "debug", false, "print debug info")

	lookupCmd := &cobra.Command{
		Use:   "lookup [ip...]",
		Short: "Resolve addresses (reads stdin when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	lookupCmd.Flags().StringVarP(&opts.format, "format", "f", "json", "output format: json, msgpack or text")
	lookupCmd.Flags().BoolVar(&opts.raw, "raw", false, "print undecomposed decoder output")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show database headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(opts, cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(lookupCmd, infoCmd)
	return rootCmd
}

func runLookup(opts *options, args []string, in io.Reader, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	locator, err := ipwry.NewLocator(cfg)
	if err != nil {
		return err
	}
	defer locator.Close()

	enc, err := newEncoder(opts.format, out)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if ip := strings.TrimSpace(scanner.Text()); ip != "" {
				args = append(args, ip)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	for _, ip := range args {
		var v interface{}
		if opts.raw {
			raw, err := locator.LookupRaw(ip)
			if err != nil {
				v = ipwry.Result{Location: ipwry.Location{IP: ip}, Error: err.Error(), ErrorKind: ipwry.ErrorKind(err)}
			} else {
				v = raw
			}
		} else {
			v = locator.Locate(ip)
		}
		if err := enc(v); err != nil {
			return err
		}
	}
	return nil
}

func newEncoder(format string, out io.Writer) (func(v interface{}) error, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		return enc.Encode, nil
	case "msgpack":
		return msgpack.NewEncoder(out).Encode, nil
	case "text":
		return func(v interface{}) error {
			return writeText(out, v)
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func writeText(out io.Writer, v interface{}) error {
	var err error
	switch r := v.(type) {
	case ipwry.Result:
		if !r.OK() {
			_, err = fmt.Fprintf(out, "%s\terror: %s\n", r.IP, r.Error)
		} else {
			_, err = fmt.Fprintf(out, "%s\t%s\t%s\n", r.IP, r.Area, r.ISP)
		}
	case *ipwry.RawLocation:
		_, err = fmt.Fprintf(out, "%s\t%s - %s\t%s %s\n", r.IP, r.Start, r.End, r.Country, r.Area)
	default:
		_, err = fmt.Fprintln(out, v)
	}
	return err
}

func runInfo(opts *options, out io.Writer) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	for _, path := range []string{cfg.IPv4Path(), cfg.IPv6Path()} {
		db, err := ipwry.OpenDatabase(path)
		if err != nil {
			logger.Warningf("skip %s: %v", path, err)
			fmt.Fprintf(out, "%s\tunavailable (%s)\n", path, ipwry.ErrorKind(err))
			continue
		}
		switch h := db.(type) {
		case *ipwry.QQWry:
			fmt.Fprintf(out, "%s\tqqwry\trecords=%d first=%d last=%d\n",
				path, db.Total(), h.Header.FirstOffset, h.Header.LastOffset)
		case *ipwry.IPv6Wry:
			fmt.Fprintf(out, "%s\tipv6wry\trecords=%d iplen=%d offlen=%d index=[%d,%d)\n",
				path, db.Total(), h.Header.IPLen, h.Header.OffsetLen,
				h.Header.IndexStartOffset, h.Header.IndexEndOffset)
		}
		db.Close()
	}
	return nil
}
