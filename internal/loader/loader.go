// Package loader implements the external merge-sort bulk loader of spec.md
// §4.3: it streams the unordered jewelry.csv source into two sorted,
// fixed-record binary tables (jewelryRegister.dat, orderHistory.dat) and
// their sparse indices (jewelryIndex.dat, orderIndex.dat), bounding memory
// use with numbered temporary run files that are swept on completion.
//
// Grounded on original_source/isam2.c's createSortedRuns/mergeOrderRuns/
// mergeJewelryRuns/carregarDadosDoCSV (three phases plus cleanup) and on
// other_examples' entreya-csvquery Sorter for the Go idiom of a bounded
// in-memory buffer flushed to a numbered temp file. The merge itself keeps
// isam2.c's linear front-record-array minimum, not csvquery's heap, per
// spec.md §4.3's exact two-phase k-way-merge structure (DESIGN NOTES item 5
// flags the heap as the scale-up path, not required at this size).
package loader

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	jerrors "github.com/dataforge/jewelbase/pkg/errors"
	"github.com/dataforge/jewelbase/internal/record"
	"github.com/dataforge/jewelbase/internal/sparseindex"
	"github.com/dataforge/jewelbase/pkg/runfile"
)

// File names, relative to the data directory, per spec.md §6.
const (
	FileProductData  = "jewelryRegister.dat"
	FileOrderData    = "orderHistory.dat"
	FileProductIndex = "jewelryIndex.dat"
	FileOrderIndex   = "orderIndex.dat"
)

// minCSVFields is the spec.md §6 field-count floor: rows with fewer than 11
// fields are skipped (ParseError, recovered locally per spec.md §7).
const minCSVFields = 11

// Phase names the loader's current stage, per spec.md §4.9's state machine:
// Idle -> CreatingRuns -> MergingOrders -> MergingProducts -> CleaningUp ->
// Done, with any phase able to transition to Failed (which still attempts
// CleaningUp).
type Phase string

const (
	PhaseIdle            Phase = "Idle"
	PhaseCreatingRuns     Phase = "CreatingRuns"
	PhaseMergingOrders    Phase = "MergingOrders"
	PhaseMergingProducts  Phase = "MergingProducts"
	PhaseCleaningUp       Phase = "CleaningUp"
	PhaseDone             Phase = "Done"
	PhaseFailed           Phase = "Failed"
)

// Config describes one bulk-load run.
type Config struct {
	// CSVPath is the input file: a header line followed by comma-separated
	// rows in the exact column order spec.md §6 documents.
	CSVPath string

	// DataDir is the working directory the output data/index files and the
	// merge-sort temporaries are written under.
	DataDir string

	// IndexGap is G, the sparse-index spacing (spec.md §4.2).
	IndexGap int

	// RunBudget is L, the maximum records held in each in-memory buffer
	// before a run is flushed to disk (spec.md §4.3).
	RunBudget int

	Log *zap.SugaredLogger
}

// Result reports what a completed (or failed) load accomplished.
type Result struct {
	Phase           Phase
	OrdersWritten   int64
	ProductsWritten int64
	OrderRuns       int
	ProductRuns     int
	RowsSkipped     int64
}

// Load runs all three phases of the external merge-sort bulk loader plus
// cleanup, per spec.md §4.3. On any fatal error the loader still attempts
// CleaningUp (spec.md §4.9) before returning.
func Load(cfg Config) (Result, error) {
	res := Result{Phase: PhaseCreatingRuns}

	orderRuns, productRuns, rowsSkipped, err := createSortedRuns(cfg)
	res.OrderRuns, res.ProductRuns, res.RowsSkipped = orderRuns, productRuns, rowsSkipped
	if err != nil {
		res.Phase = PhaseFailed
		_ = runfile.Sweep(cfg.DataDir)
		return res, err
	}

	res.Phase = PhaseMergingOrders
	ordersWritten, err := mergeOrderRuns(cfg, orderRuns)
	res.OrdersWritten = ordersWritten
	if err != nil {
		res.Phase = PhaseFailed
		_ = runfile.Sweep(cfg.DataDir)
		return res, err
	}

	res.Phase = PhaseMergingProducts
	productsWritten, err := mergeProductRuns(cfg, productRuns)
	res.ProductsWritten = productsWritten
	if err != nil {
		res.Phase = PhaseFailed
		_ = runfile.Sweep(cfg.DataDir)
		return res, err
	}

	res.Phase = PhaseCleaningUp
	if err := runfile.Sweep(cfg.DataDir); err != nil {
		res.Phase = PhaseFailed
		return res, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to sweep merge-sort temporaries").
			WithPath(cfg.DataDir)
	}

	res.Phase = PhaseDone
	if cfg.Log != nil {
		cfg.Log.Infow("bulk load complete",
			"orders_written", res.OrdersWritten, "products_written", res.ProductsWritten,
			"rows_skipped", res.RowsSkipped)
	}
	return res, nil
}

// parseRow converts one CSV record (spec.md §6's 13-column layout; further
// columns are ignored) into an Order. It reports false if the row has fewer
// than minCSVFields fields — a ParseError that spec.md §7 says is recovered
// locally (the row is silently skipped, not fatal).
func parseRow(fields []string) (record.Order, bool) {
	if len(fields) < minCSVFields {
		return record.Order{}, false
	}

	var o record.Order
	copy(o.Timestamp[:], record.PadString(fields[0], len(o.Timestamp)))
	o.OrderID, _ = strconv.ParseInt(fields[1], 10, 64)
	o.ProductID, _ = strconv.ParseInt(fields[2], 10, 64)
	if q, err := strconv.ParseInt(fields[3], 10, 32); err == nil {
		o.Quantity = int32(q)
	}
	o.CategoryID, _ = strconv.ParseInt(fields[4], 10, 64)
	copy(o.CategoryAlias[:], record.PadString(fields[5], len(o.CategoryAlias)))
	if b, err := strconv.ParseInt(fields[6], 10, 32); err == nil {
		o.BrandID = int32(b)
	}
	if p, err := strconv.ParseFloat(fields[7], 32); err == nil {
		o.PriceUSD = float32(p)
	}
	o.UserID, _ = strconv.ParseInt(fields[8], 10, 64)
	if len(fields) > 9 && len(fields[9]) > 0 {
		o.Gender = fields[9][0]
	}
	if len(fields) > 10 {
		copy(o.Color[:], record.PadString(fields[10], len(o.Color)))
	}
	if len(fields) > 11 {
		copy(o.Metal[:], record.PadString(fields[11], len(o.Metal)))
	}
	if len(fields) > 12 {
		copy(o.Gem[:], record.PadString(fields[12], len(o.Gem)))
	}

	return o, true
}

// productFromOrder derives the denormalized Product row an Order implies,
// per spec.md §4.3's "derive a synthesized Product" instruction.
func productFromOrder(o record.Order) record.Product {
	return record.Product{
		ProductID:  o.ProductID,
		CategoryID: o.CategoryID,
		BrandID:    o.BrandID,
		PriceUSD:   o.PriceUSD,
		Gender:     o.Gender,
		Color:      o.Color,
		Metal:      o.Metal,
		Gem:        o.Gem,
	}
}

// createSortedRuns is Phase 1: stream the CSV, accumulate two bounded
// buffers (orders, and products deduped within the current run by a linear
// scan against the run's own product buffer), sort and flush each buffer to
// a numbered run file once it reaches cfg.RunBudget, and flush any partial
// trailing buffers as final runs.
func createSortedRuns(cfg Config) (orderRuns, productRuns int, rowsSkipped int64, err error) {
	f, openErr := os.Open(cfg.CSVPath)
	if openErr != nil {
		return 0, 0, 0, jerrors.ClassifyFileOpenError(openErr, cfg.CSVPath, filepath.Base(cfg.CSVPath))
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1 // rows may have fewer fields than the header; we check the floor ourselves
	r.TrimLeadingSpace = true

	// Skip the header line.
	if _, err := r.Read(); err != nil && err != io.EOF {
		return 0, 0, 0, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to read CSV header").
			WithPath(cfg.CSVPath)
	}

	orderBuf := make([]record.Order, 0, cfg.RunBudget)
	productBuf := make([]record.Product, 0, cfg.RunBudget)

	for {
		fields, readErr := r.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return orderRuns, productRuns, rowsSkipped, jerrors.NewStorageError(
				readErr, jerrors.ErrorCodeIO, "short read while scanning CSV source").WithPath(cfg.CSVPath)
		}

		o, ok := parseRow(fields)
		if !ok {
			rowsSkipped++
			continue
		}
		orderBuf = append(orderBuf, o)

		if !productSeenInRun(productBuf, o.ProductID) {
			productBuf = append(productBuf, productFromOrder(o))
		}

		if len(orderBuf) >= cfg.RunBudget {
			if err := flushOrderRun(cfg.DataDir, orderRuns, orderBuf); err != nil {
				return orderRuns, productRuns, rowsSkipped, err
			}
			orderRuns++
			orderBuf = orderBuf[:0]
		}

		if len(productBuf) >= cfg.RunBudget {
			if err := flushProductRun(cfg.DataDir, productRuns, productBuf); err != nil {
				return orderRuns, productRuns, rowsSkipped, err
			}
			productRuns++
			productBuf = productBuf[:0]
		}
	}

	if len(orderBuf) > 0 {
		if err := flushOrderRun(cfg.DataDir, orderRuns, orderBuf); err != nil {
			return orderRuns, productRuns, rowsSkipped, err
		}
		orderRuns++
	}
	if len(productBuf) > 0 {
		if err := flushProductRun(cfg.DataDir, productRuns, productBuf); err != nil {
			return orderRuns, productRuns, rowsSkipped, err
		}
		productRuns++
	}

	if cfg.Log != nil {
		cfg.Log.Infow("phase 1 complete: runs created",
			"order_runs", orderRuns, "product_runs", productRuns, "rows_skipped", rowsSkipped)
	}
	return orderRuns, productRuns, rowsSkipped, nil
}

// productSeenInRun is the "dedupe within a run by a linear check against
// the current run's product buffer" spec.md §4.3 mandates — acceptable at
// the run-budget scale (bounded by cfg.RunBudget).
func productSeenInRun(buf []record.Product, productID int64) bool {
	for i := range buf {
		if buf[i].ProductID == productID {
			return true
		}
	}
	return false
}

func flushOrderRun(dataDir string, runNum int, buf []record.Order) error {
	sorted := make([]record.Order, len(buf))
	copy(sorted, buf)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OrderID < sorted[j].OrderID })
	return writeRun(dataDir, runfile.GenerateName(runfile.KindOrder, runNum), len(sorted), func(w io.Writer) error {
		for _, o := range sorted {
			enc, err := o.Encode()
			if err != nil {
				return err
			}
			if _, err := w.Write(enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func flushProductRun(dataDir string, runNum int, buf []record.Product) error {
	sorted := make([]record.Product, len(buf))
	copy(sorted, buf)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return writeRun(dataDir, runfile.GenerateName(runfile.KindProduct, runNum), len(sorted), func(w io.Writer) error {
		for _, p := range sorted {
			enc, err := p.Encode()
			if err != nil {
				return err
			}
			if _, err := w.Write(enc); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeRun(dataDir, name string, count int, write func(io.Writer) error) error {
	path := filepath.Join(dataDir, name)
	f, err := os.Create(path)
	if err != nil {
		return jerrors.ClassifyFileOpenError(err, path, name)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write run file").
			WithPath(path).WithFileName(name)
	}
	if err := bw.Flush(); err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to flush run file").
			WithPath(path).WithFileName(name)
	}
	_ = count
	return nil
}

// orderRun wraps one open order run file and its current front record.
type orderRun struct {
	f        *os.File
	r        *bufio.Reader
	front    record.Order
	finished bool
}

func openOrderRuns(dataDir string, numRuns int) ([]*orderRun, error) {
	runs := make([]*orderRun, numRuns)
	for i := 0; i < numRuns; i++ {
		name := runfile.GenerateName(runfile.KindOrder, i)
		path := filepath.Join(dataDir, name)
		f, err := os.Open(path)
		if err != nil {
			closeOrderRuns(runs)
			return nil, jerrors.ClassifyFileOpenError(err, path, name)
		}
		run := &orderRun{f: f, r: bufio.NewReader(f)}
		if err := advanceOrderRun(run); err != nil {
			closeOrderRuns(runs)
			return nil, err
		}
		runs[i] = run
	}
	return runs, nil
}

// advanceOrderRun reads the next record.Order from run's front position. A
// clean EOF (zero bytes read) closes the run; any other short read is
// fatal, per spec.md §4.3's failure policy for Phase 2/3.
func advanceOrderRun(run *orderRun) error {
	buf := make([]byte, record.OrderSize)
	n, err := io.ReadFull(run.r, buf)
	if err == io.EOF && n == 0 {
		run.finished = true
		return nil
	}
	if err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "short read from order run file").
			WithDetail("bytes_read", n)
	}
	o, decErr := record.DecodeOrder(buf)
	if decErr != nil {
		return jerrors.NewStorageError(decErr, jerrors.ErrorCodeIO, "failed to decode order run record")
	}
	run.front = o
	return nil
}

func closeOrderRuns(runs []*orderRun) {
	for _, r := range runs {
		if r != nil && r.f != nil {
			_ = r.f.Close()
		}
	}
}

// mergeOrderRuns is Phase 2: a k-way merge of all order runs, selecting the
// minimum OrderID's front record at each step (ties broken by lower run
// index, per spec.md §4.3's deterministic tie-break policy — the linear
// scan below picks the first strictly-smaller front record, so an earlier
// run index is never displaced by an equal one).
func mergeOrderRuns(cfg Config, numRuns int) (int64, error) {
	runs, err := openOrderRuns(cfg.DataDir, numRuns)
	if err != nil {
		return 0, err
	}
	defer closeOrderRuns(runs)

	dataPath := filepath.Join(cfg.DataDir, FileOrderData)
	dataFile, err := os.Create(dataPath)
	if err != nil {
		return 0, jerrors.ClassifyFileOpenError(err, dataPath, FileOrderData)
	}
	defer dataFile.Close()
	dataW := bufio.NewWriter(dataFile)

	indexPath := filepath.Join(cfg.DataDir, FileOrderIndex)
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return 0, jerrors.ClassifyFileOpenError(err, indexPath, FileOrderIndex)
	}
	defer indexFile.Close()
	indexW := bufio.NewWriter(indexFile)

	var totalWritten int64
	for {
		minIdx := -1
		for i, run := range runs {
			if run.finished {
				continue
			}
			if minIdx == -1 || run.front.OrderID < runs[minIdx].front.OrderID {
				minIdx = i
			}
		}
		if minIdx == -1 {
			break
		}

		enc, encErr := runs[minIdx].front.Encode()
		if encErr != nil {
			return totalWritten, jerrors.NewStorageError(encErr, jerrors.ErrorCodeIO, "failed to encode order")
		}
		if _, err := dataW.Write(enc); err != nil {
			return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write order record").
				WithPath(dataPath)
		}

		if cfg.IndexGap > 0 && totalWritten%int64(cfg.IndexGap) == 0 {
			entry := sparseindex.Entry{Key: runs[minIdx].front.OrderID, Offset: totalWritten * int64(record.OrderSize)}
			if err := sparseindex.AppendEntry(indexW, entry); err != nil {
				return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write order index entry").
					WithPath(indexPath)
			}
		}

		totalWritten++
		if err := advanceOrderRun(runs[minIdx]); err != nil {
			return totalWritten, err
		}
	}

	if err := dataW.Flush(); err != nil {
		return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to flush order data file").WithPath(dataPath)
	}
	if err := indexW.Flush(); err != nil {
		return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to flush order index file").WithPath(indexPath)
	}

	if cfg.Log != nil {
		cfg.Log.Infow("phase 2 complete: orders merged", "orders_written", totalWritten, "runs", numRuns)
	}
	return totalWritten, nil
}

// productRun mirrors orderRun for the product merge phase.
type productRun struct {
	f        *os.File
	r        *bufio.Reader
	front    record.Product
	finished bool
}

func openProductRuns(dataDir string, numRuns int) ([]*productRun, error) {
	runs := make([]*productRun, numRuns)
	for i := 0; i < numRuns; i++ {
		name := runfile.GenerateName(runfile.KindProduct, i)
		path := filepath.Join(dataDir, name)
		f, err := os.Open(path)
		if err != nil {
			closeProductRuns(runs)
			return nil, jerrors.ClassifyFileOpenError(err, path, name)
		}
		run := &productRun{f: f, r: bufio.NewReader(f)}
		if err := advanceProductRun(run); err != nil {
			closeProductRuns(runs)
			return nil, err
		}
		runs[i] = run
	}
	return runs, nil
}

func advanceProductRun(run *productRun) error {
	buf := make([]byte, record.ProductSize)
	n, err := io.ReadFull(run.r, buf)
	if err == io.EOF && n == 0 {
		run.finished = true
		return nil
	}
	if err != nil {
		return jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "short read from jewelry run file").
			WithDetail("bytes_read", n)
	}
	p, decErr := record.DecodeProduct(buf)
	if decErr != nil {
		return jerrors.NewStorageError(decErr, jerrors.ErrorCodeIO, "failed to decode jewelry run record")
	}
	run.front = p
	return nil
}

func closeProductRuns(runs []*productRun) {
	for _, r := range runs {
		if r != nil && r.f != nil {
			_ = r.f.Close()
		}
	}
}

// mergeProductRuns is Phase 3: a k-way merge of all jewelry runs with
// deduplication — a product is written only if its ProductID differs from
// the last-written one (spec.md §4.3).
func mergeProductRuns(cfg Config, numRuns int) (int64, error) {
	runs, err := openProductRuns(cfg.DataDir, numRuns)
	if err != nil {
		return 0, err
	}
	defer closeProductRuns(runs)

	dataPath := filepath.Join(cfg.DataDir, FileProductData)
	dataFile, err := os.Create(dataPath)
	if err != nil {
		return 0, jerrors.ClassifyFileOpenError(err, dataPath, FileProductData)
	}
	defer dataFile.Close()
	dataW := bufio.NewWriter(dataFile)

	indexPath := filepath.Join(cfg.DataDir, FileProductIndex)
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return 0, jerrors.ClassifyFileOpenError(err, indexPath, FileProductIndex)
	}
	defer indexFile.Close()
	indexW := bufio.NewWriter(indexFile)

	var totalWritten int64
	lastProductID := int64(-1)
	first := true

	for {
		minIdx := -1
		for i, run := range runs {
			if run.finished {
				continue
			}
			if minIdx == -1 || run.front.ProductID < runs[minIdx].front.ProductID {
				minIdx = i
			}
		}
		if minIdx == -1 {
			break
		}

		id := runs[minIdx].front.ProductID
		if first || id != lastProductID {
			enc, encErr := runs[minIdx].front.Encode()
			if encErr != nil {
				return totalWritten, jerrors.NewStorageError(encErr, jerrors.ErrorCodeIO, "failed to encode product")
			}
			if _, err := dataW.Write(enc); err != nil {
				return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write product record").
					WithPath(dataPath)
			}

			if cfg.IndexGap > 0 && totalWritten%int64(cfg.IndexGap) == 0 {
				entry := sparseindex.Entry{Key: id, Offset: totalWritten * int64(record.ProductSize)}
				if err := sparseindex.AppendEntry(indexW, entry); err != nil {
					return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to write jewelry index entry").
						WithPath(indexPath)
				}
			}

			totalWritten++
			lastProductID = id
			first = false
		}

		if err := advanceProductRun(runs[minIdx]); err != nil {
			return totalWritten, err
		}
	}

	if err := dataW.Flush(); err != nil {
		return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to flush jewelry data file").WithPath(dataPath)
	}
	if err := indexW.Flush(); err != nil {
		return totalWritten, jerrors.NewStorageError(err, jerrors.ErrorCodeIO, "failed to flush jewelry index file").WithPath(indexPath)
	}

	if cfg.Log != nil {
		cfg.Log.Infow("phase 3 complete: jewelry merged", "products_written", totalWritten, "runs", numRuns)
	}
	return totalWritten, nil
}
