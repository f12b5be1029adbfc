// Command jewelctl is the operator-facing CLI for the jewelbase storage
// engine: a numbered interactive menu (grounded on original_source/isam2.c's
// main() menu loop) plus an optional non-interactive flag mode for
// scripting a single action without the menu loop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/dataforge/jewelbase/internal/record"
	"github.com/dataforge/jewelbase/pkg/options"
	"github.com/dataforge/jewelbase/pkg/store"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in *os.File, out, errOut *os.File) int {
	flags := flag.NewFlagSet("jewelctl", flag.ContinueOnError)
	flags.SetOutput(errOut)

	dataDir := flags.String("data-dir", options.DefaultDataDir, "working data directory")
	indexGap := flags.Int("index-gap", options.DefaultIndexGap, "sparse index spacing G")
	runBudget := flags.Int("run-budget", options.DefaultRunBudget, "loader per-buffer record budget L")
	btreeFanout := flags.Int("btree-fanout", options.DefaultBTreeFanout, "B+ tree fan-out B")
	hashBuckets := flags.Int("hash-buckets", options.DefaultHashBuckets, "hash index bucket count T")
	transpositionKey := flags.String("transposition-key", options.DefaultTranspositionKey, "columnar transposition key")
	rebuildThreshold := flags.Int("rebuild-threshold", options.DefaultRebuildThreshold, "tombstone count that triggers the rebuild advisory")

	load := flags.String("load", "", "non-interactive: load a CSV file and exit")
	searchProduct := flags.Int64("search-product", -1, "non-interactive: search a product by file index and exit")
	protectFile := flags.StringSlice("protect", nil, "non-interactive: protect src,dst and exit")
	restoreFile := flags.StringSlice("restore", nil, "non-interactive: restore src,dst and exit")
	verifyFiles := flags.StringSlice("verify", nil, "non-interactive: verify a,b and exit")

	if err := flags.Parse(args[1:]); err != nil {
		return 1
	}

	s := store.New("jewelctl",
		options.WithDataDir(*dataDir),
		options.WithIndexGap(*indexGap),
		options.WithRunBudget(*runBudget),
		options.WithBTreeFanout(*btreeFanout),
		options.WithHashBuckets(*hashBuckets),
		options.WithTranspositionKey(*transpositionKey),
		options.WithRebuildThreshold(*rebuildThreshold),
	)
	ctx := context.Background()
	defer s.Close(ctx)

	switch {
	case *load != "":
		return runNonInteractive(ctx, s, out, errOut, func() error {
			res, err := s.LoadCSV(ctx, *load)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "loaded: %d orders, %d products, %d rows skipped\n", res.OrdersWritten, res.ProductsWritten, res.RowsSkipped)
			return nil
		})
	case *searchProduct >= 0:
		return runNonInteractive(ctx, s, out, errOut, func() error {
			p, found, err := s.SearchProductByFileIndex(ctx, *searchProduct)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintln(out, "not found")
				return nil
			}
			printProduct(out, p)
			return nil
		})
	case len(*protectFile) == 2:
		return runNonInteractive(ctx, s, out, errOut, func() error {
			return s.Protect(ctx, (*protectFile)[0], (*protectFile)[1])
		})
	case len(*restoreFile) == 2:
		return runNonInteractive(ctx, s, out, errOut, func() error {
			return s.Restore(ctx, (*restoreFile)[0], (*restoreFile)[1])
		})
	case len(*verifyFiles) == 2:
		return runNonInteractive(ctx, s, out, errOut, func() error {
			res, err := s.Verify(ctx, (*verifyFiles)[0], (*verifyFiles)[1])
			if err != nil {
				return err
			}
			if res.Identical {
				fmt.Fprintln(out, "identical")
			} else {
				fmt.Fprintf(out, "differ at byte offset %d\n", res.FirstMismatch)
			}
			return nil
		})
	}

	return runMenu(ctx, s, in, out, errOut)
}

func runNonInteractive(_ context.Context, _ *store.Store, out, errOut *os.File, action func() error) int {
	if err := action(); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	_ = out
	return 0
}

const menuText = `
 1) Load CSV
 2) Show first records
 3) Search product by file index
 4) Insert order
 5) Remove order
 6) Load in-memory indices
 7) Search product via B+ tree
 8) Search orders-by-product via hash
 9) Print index stats
10) Analyze collisions
11) Run benchmarks
12) Compress
13) Decompress
14) Encrypt
15) Decrypt
16) Protect
17) Restore
18) Verify
 0) Exit
`

// runMenu is the interactive numbered menu loop, grounded on
// original_source/isam2.c's main() choice dispatch.
func runMenu(ctx context.Context, s *store.Store, in, out, errOut *os.File) int {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, menuText, "choice> ")
		if !scanner.Scan() {
			return 0
		}
		choice := strings.TrimSpace(scanner.Text())

		if choice == "0" || strings.EqualFold(choice, "exit") {
			return 0
		}

		if err := dispatch(ctx, s, scanner, out, choice); err != nil {
			fmt.Fprintln(errOut, "error:", err)
		}
	}
}

func dispatch(ctx context.Context, s *store.Store, scanner *bufio.Scanner, out *os.File, choice string) error {
	switch choice {
	case "1":
		path := prompt(scanner, out, "csv path: ")
		res, err := s.LoadCSV(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "loaded: %d orders, %d products, %d rows skipped, phase=%s\n",
			res.OrdersWritten, res.ProductsWritten, res.RowsSkipped, res.Phase)
		return nil

	case "2":
		n, err := promptInt(scanner, out, "how many records: ")
		if err != nil {
			return err
		}
		products, orders, err := s.ShowFirstRecords(ctx, n)
		if err != nil {
			return err
		}
		for _, p := range products {
			printProduct(out, p)
		}
		for _, o := range orders {
			printOrder(out, o)
		}
		return nil

	case "3":
		id, err := promptInt64(scanner, out, "product id: ")
		if err != nil {
			return err
		}
		p, found, err := s.SearchProductByFileIndex(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "not found")
			return nil
		}
		printProduct(out, p)
		return nil

	case "4":
		var o record.Order
		orderID, err := promptInt64(scanner, out, "order id: ")
		if err != nil {
			return err
		}
		productID, err := promptInt64(scanner, out, "product id: ")
		if err != nil {
			return err
		}
		o.OrderID = orderID
		o.ProductID = productID
		copy(o.Timestamp[:], record.PadString(prompt(scanner, out, "timestamp: "), len(o.Timestamp)))
		if err := s.InsertOrder(ctx, o); err != nil {
			return err
		}
		fmt.Fprintln(out, "inserted")
		return nil

	case "5":
		id, err := promptInt64(scanner, out, "order id: ")
		if err != nil {
			return err
		}
		if err := s.RemoveOrder(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, "removed (tombstoned)")
		if s.ShouldRebuild(ctx) {
			fmt.Fprintln(out, "advisory: tombstone count has crossed the rebuild threshold; consider option 6")
		}
		return nil

	case "6":
		if err := s.LoadIndexes(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "in-memory indices rebuilt")
		return nil

	case "7":
		id, err := promptInt64(scanner, out, "product id: ")
		if err != nil {
			return err
		}
		offset, found, err := s.SearchProductByBTree(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "not found")
			return nil
		}
		fmt.Fprintf(out, "file offset: %d\n", offset)
		return nil

	case "8":
		id, err := promptInt64(scanner, out, "product id: ")
		if err != nil {
			return err
		}
		entries, err := s.SearchOrdersByProductHash(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d order(s) found\n", len(entries))
		for _, e := range entries {
			fmt.Fprintf(out, "  order_id=%d offset=%d\n", e.OrderID, e.Offset)
		}
		return nil

	case "9":
		bt, hs, err := s.PrintIndexStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "b+tree: height=%d nodes=%d keys=%s memory=%s\n",
			bt.Height, bt.NodeCount, humanize.Comma(int64(bt.KeyCount)), humanize.Bytes(uint64(bt.MemoryEstimate)))
		fmt.Fprintf(out, "hash: buckets=%d elements=%s occupied=%d load_factor=%.3f\n",
			hs.BucketCount, humanize.Comma(int64(hs.ElementCount)), hs.OccupiedCount, hs.LoadFactor)
		return nil

	case "10":
		hs, err := s.AnalyzeCollisions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "collisions=%d longest_chain=%d\n", hs.CollisionCount, hs.LongestChain)
		for i, count := range hs.Histogram {
			fmt.Fprintf(out, "  chain_length=%d count=%d\n", i+1, count)
		}
		return nil

	case "11":
		res, err := s.RunBenchmarks(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "sample_size=%s file_index=%s btree=%s hash=%s\n",
			humanize.Comma(int64(res.SampleSize)), res.FileIndex, res.BTree, res.Hash)
		return nil

	case "12":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Compress(ctx, src, dst)

	case "13":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Decompress(ctx, src, dst)

	case "14":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Encrypt(ctx, src, dst)

	case "15":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Decrypt(ctx, src, dst)

	case "16":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Protect(ctx, src, dst)

	case "17":
		src, dst := prompt(scanner, out, "src path: "), prompt(scanner, out, "dst path: ")
		return s.Restore(ctx, src, dst)

	case "18":
		a, b := prompt(scanner, out, "path a: "), prompt(scanner, out, "path b: ")
		res, err := s.Verify(ctx, a, b)
		if err != nil {
			return err
		}
		if res.Identical {
			fmt.Fprintln(out, "identical")
		} else {
			fmt.Fprintf(out, "differ: size_a=%d size_b=%d first_mismatch=%d\n", res.SizeA, res.SizeB, res.FirstMismatch)
		}
		return nil

	default:
		fmt.Fprintln(out, "unrecognized choice")
		return nil
	}
}

func prompt(scanner *bufio.Scanner, out *os.File, label string) string {
	fmt.Fprint(out, label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func promptInt(scanner *bufio.Scanner, out *os.File, label string) (int, error) {
	return strconv.Atoi(prompt(scanner, out, label))
}

func promptInt64(scanner *bufio.Scanner, out *os.File, label string) (int64, error) {
	return strconv.ParseInt(prompt(scanner, out, label), 10, 64)
}

func printProduct(out *os.File, p record.Product) {
	fmt.Fprintf(out, "product_id=%d category_id=%d brand_id=%d price_usd=%.2f gender=%c color=%q metal=%q gem=%q\n",
		p.ProductID, p.CategoryID, p.BrandID, p.PriceUSD, p.Gender,
		record.TrimString(p.Color[:]), record.TrimString(p.Metal[:]), record.TrimString(p.Gem[:]))
}

func printOrder(out *os.File, o record.Order) {
	fmt.Fprintf(out, "order_id=%d product_id=%d quantity=%d price_usd=%.2f timestamp=%q\n",
		o.OrderID, o.ProductID, o.Quantity, o.PriceUSD, record.TrimString(o.Timestamp[:]))
}
