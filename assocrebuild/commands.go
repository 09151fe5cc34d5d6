package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/brenns10/kernel-stuff/assocarray"
	"github.com/brenns10/kernel-stuff/corefile"
)

var (
	outputPath string
	formatName string
)

// targetArgs accepts "CORE ADDR", or just "ADDR" with --pid.
func targetArgs(cmd *cobra.Command, args []string) error {
	if pid != 0 {
		return cobra.ExactArgs(1)(cmd, args)
	}
	return cobra.ExactArgs(2)(cmd, args)
}

var constructCmd = &cobra.Command{
	Use:   "construct [CORE] ADDR|SYMBOL",
	Short: "Write C statements that rebuild the array",
	Args:  targetArgs,
	RunE:  runConstruct,
}

var scriptCmd = &cobra.Command{
	Use:   "script [CORE] ADDR|SYMBOL",
	Short: "Write the reconstruction script as json, yaml, or cbor",
	Args:  targetArgs,
	RunE:  runScript,
}

var dumpCmd = &cobra.Command{
	Use:   "dump [CORE] ADDR|SYMBOL",
	Short: "Print the array as an indented tree",
	Args:  targetArgs,
	RunE:  runDump,
}

var replayCmd = &cobra.Command{
	Use:   "replay SCRIPT",
	Short: "Replay a script in memory and print the resulting tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

// source is an opened address space plus the array address in it.
type source struct {
	name   string
	target corefile.Target
	layout assocarray.Layout
	addr   uint64
	close  func() error
}

func openSource(args []string) (*source, error) {
	src := &source{}
	var image *corefile.Image
	if pid != 0 {
		p, err := corefile.OpenProcess(pid)
		if err != nil {
			return nil, err
		}
		src.name = fmt.Sprintf("pid %d", pid)
		src.target, src.close = p, p.Close
	} else {
		img, err := corefile.Open(args[0], &corefile.OpenOptions{SymbolFile: symbolsPath})
		if err != nil {
			return nil, err
		}
		image = img
		src.name = args[0]
		src.target, src.close = img, img.Close
	}

	addr, err := resolveAddr(args[len(args)-1], image)
	if err != nil {
		return nil, multierr.Append(err, src.close())
	}
	src.addr = addr
	src.layout = cfg.Layout.Apply(assocarray.LayoutFor(src.target.Arch()))
	if err := src.layout.Validate(); err != nil {
		return nil, multierr.Append(err, src.close())
	}
	logger.Debug("opened source",
		zap.String("source", src.name),
		zap.Stringer("arch", src.target.Arch()),
		zap.String("addr", fmt.Sprintf("0x%x", addr)))
	return src, nil
}

// resolveAddr parses s as a hex address, or looks it up as a symbol in img.
func resolveAddr(s string, img *corefile.Image) (uint64, error) {
	if addr, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64); err == nil {
		return addr, nil
	}
	if img == nil {
		return 0, fmt.Errorf("%q is not an address, and symbols need a core file", s)
	}
	addr, err := img.LookupSymbol(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, err)
	}
	return addr, nil
}

func (src *source) reconstruct() (assocarray.Script, error) {
	m := assocarray.NewTargetMemory(src.target, src.layout)
	return assocarray.ReconstructArray(m, src.addr, src.layout, cfg.Options())
}

// createOutput opens path for writing, or returns stdout for "" and "-".
func createOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	bw := bufio.NewWriter(f)
	return bw, func() error { return multierr.Append(bw.Flush(), f.Close()) }, nil
}

func runConstruct(cmd *cobra.Command, args []string) (err error) {
	src, err := openSource(args)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.close()) }()

	s, err := src.reconstruct()
	if err != nil {
		return err
	}
	path := outputPath
	if path == "" {
		path = cfg.Output
	}
	w, done, err := createOutput(cmd, path)
	if err != nil {
		return err
	}
	err = assocarray.RenderC(w, s)
	if err = multierr.Append(err, done()); err != nil {
		return err
	}
	nodes, leaves := s.Counts()
	logger.Info("wrote construction",
		zap.String("output", path),
		zap.Int("nodes", nodes),
		zap.Int("leaves", leaves))
	return nil
}

func scriptFormat() (assocarray.Format, error) {
	name := formatName
	if name == "" {
		name = cfg.Format
	}
	return assocarray.ParseFormat(name)
}

func runScript(cmd *cobra.Command, args []string) (err error) {
	f, err := scriptFormat()
	if err != nil {
		return err
	}
	src, err := openSource(args)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.close()) }()

	s, err := src.reconstruct()
	if err != nil {
		return err
	}
	w, done, err := createOutput(cmd, outputPath)
	if err != nil {
		return err
	}
	doc := assocarray.NewDocument(src.name, src.addr, src.layout.FanOut, s)
	err = assocarray.EncodeDocument(w, doc, f)
	return multierr.Append(err, done())
}

func runDump(cmd *cobra.Command, args []string) (err error) {
	src, err := openSource(args)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.close()) }()

	m := assocarray.NewTargetMemory(src.target, src.layout)
	arr, err := assocarray.ReadArray(m, src.addr, src.layout)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "assoc_array 0x%x: nr_leaves_on_tree=%d\n", arr.Addr, arr.TotalLeaves)
	return assocarray.Dump(out, m, arr.Root)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := scriptFormat()
	if err != nil {
		return err
	}
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := assocarray.DecodeDocument(bufio.NewReader(in), f)
	if err != nil {
		return err
	}
	tree, err := assocarray.Replay(doc.Script, doc.FanOut)
	if err != nil {
		return err
	}
	if got := uint64(len(tree.Leaves())); got != tree.TotalLeaves {
		logger.Warn("leaf count mismatch",
			zap.Uint64("nr_leaves_on_tree", tree.TotalLeaves),
			zap.Uint64("leaves", got))
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "script %s from %s (0x%x): nr_leaves_on_tree=%d\n", doc.ID, doc.Source, doc.ArrayAddr, tree.TotalLeaves)
	return tree.Dump(out)
}
