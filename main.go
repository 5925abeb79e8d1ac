package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"headerDiffCodec/internal/config"
	"headerDiffCodec/internal/headerdiff"
	"headerDiffCodec/internal/logging"
	"headerDiffCodec/internal/server"
	"headerDiffCodec/internal/session"
)

func main() {
	var configFile = flag.String("config", "", "config file")
	var inputFile = flag.String("input", "", "JSON file holding an array of header batches")
	var serve = flag.Bool("serve", false, "start the HTTP service")
	var context = flag.String("context", "", "request or response, overrides the config")
	var tableSize = flag.Int("table-size", 0, "maximum header table size, overrides the config")

	flag.Parse()

	if *inputFile == "" && !*serve {
		panic("Either an input file or -serve is required!")
	}

	conf, err := config.LoadConfig(*configFile)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %v", err))
	}
	if *context != "" {
		conf.Codec.Context = *context
	}
	if *tableSize > 0 {
		conf.Codec.MaxTableSize = *tableSize
	}
	if err := conf.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %v", err))
	}

	level, _ := logging.ParseLevel(conf.Logger.Level)
	logger, err := logging.NewDefaultLogger(level, conf.Logger.File)
	if err != nil {
		panic(err)
	}
	defer logger.Close()

	if *inputFile != "" {
		if err := runBatches(conf, logger, *inputFile, os.Stdout); err != nil {
			logger.Log(logging.LogLevelError, "%v", err)
			os.Exit(1)
		}
	}

	if *serve {
		srv := server.NewServer(conf, logger)
		if err := srv.Start(); err != nil {
			fmt.Printf("failed to start server: %v", err)
			os.Exit(1)
		}
	}
}

func runBatches(conf *config.Config, logger logging.Logger, inputFile string, out io.Writer) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return err
	}
	var batches [][]headerdiff.HeaderField
	if err := json.Unmarshal(data, &batches); err != nil {
		return fmt.Errorf("parse %s: %w", inputFile, err)
	}

	cfg, err := conf.HeaderDiff("", logger)
	if err != nil {
		return err
	}
	s := session.New(cfg)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, headers := range batches {
		result, err := s.RoundTrip(headers)
		if err != nil {
			return err
		}

		st := result.Stats
		fmt.Fprintf(w, "batch %d: %d headers, %d -> %d bytes (%.1f%%), hpack %d bytes (%.1f%%)\n",
			result.Batch, st.Headers, st.OriginalSize, st.EncodedSize, st.Ratio()*100, st.HPACKSize, st.HPACKRatio()*100)
		for i, rep := range result.Representations {
			fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\n", headers[i].Name, rep.Kind, rep.Indexing, hex.EncodeToString(rep.Encoded))
		}
	}

	snap := s.Snapshot()
	fmt.Fprintf(w, "total: %d -> %d bytes, hpack %d bytes, table %d/%d bytes in %d entries\n",
		snap.Totals.OriginalSize, snap.Totals.EncodedSize, snap.Totals.HPACKSize,
		snap.TableSize, snap.MaxTableSize, len(snap.Entries))
	return w.Flush()
}
