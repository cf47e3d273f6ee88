package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/backmassage/scorebatch/internal/config"
	"github.com/backmassage/scorebatch/internal/corpus"
	"github.com/backmassage/scorebatch/internal/display"
	"github.com/backmassage/scorebatch/internal/logging"
)

// allList names the list written when no metadata filter is given.
const allList = "all"

func newDiscoverCmd() *cobra.Command {
	f := config.NewFlags()
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Collect candidate scores and write per-composer list files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, f)
		},
	}
	f.DefineCommon(cmd.Flags())
	f.DefineDiscover(cmd.Flags())
	return cmd
}

func runDiscover(cmd *cobra.Command, f *config.Flags) error {
	cfg, err := resolve(f, cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDiscover(); err != nil {
		return err
	}
	log, err := logging.NewLogger(&cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	paths, err := corpus.Discover(cfg.ScoreRoot, cfg.SourceExt)
	if err != nil {
		return err
	}
	log.Info("Found %s %s under %s", display.FormatCount(len(paths)), display.Plural(len(paths), "score"), cfg.ScoreRoot)

	lists := map[string][]string{allList: paths}
	order := []string{allList}
	if cfg.MetadataFile != "" {
		meta, err := readMetadata(cfg.MetadataFile)
		if err != nil {
			return err
		}
		log.Debug("Loaded %d metadata records", len(meta))
		lists = corpus.FilterByMetadata(paths, meta, cfg.Composers)
		order = cfg.Composers
	}

	for _, name := range order {
		dst := corpus.ListPath(cfg.ListDir, name)
		if err := corpus.WriteList(dst, lists[name]); err != nil {
			return err
		}
		log.Success("%s: %s %s -> %s", name, display.FormatCount(len(lists[name])), display.Plural(len(lists[name]), "score"), dst)
	}
	return nil
}

func readMetadata(path string) (map[string]corpus.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	return corpus.ReadMetadata(f)
}
