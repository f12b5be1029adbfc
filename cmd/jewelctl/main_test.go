package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureRun(t *testing.T, args []string, stdin string) (string, int) {
	t.Helper()

	inR, inW, err := os.Pipe()
	require.NoError(t, err)
	_, err = inW.WriteString(stdin)
	require.NoError(t, err)
	require.NoError(t, inW.Close())

	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	errR, errW, err := os.Pipe()
	require.NoError(t, err)

	code := run(args, inR, outW, errW)
	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())

	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	return string(outBytes) + string(errBytes), code
}

func TestNonInteractiveLoadAndSearch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "jewelry.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"timestamp,order_id,product_id,quantity,category_id,category_alias,brand_id,price_usd,user_id,gender,color,metal,gem\n"+
			"2024-01-01T00:00:00Z,1,7,1,100,rings,1,99.99,1,M,gold,silver,ruby\n"), 0o644))

	out, code := captureRun(t, []string{"jewelctl", "--data-dir", dir, "--load", csvPath}, "")
	require.Equal(t, 0, code)
	require.Contains(t, out, "loaded: 1 orders, 1 products")

	out, code = captureRun(t, []string{"jewelctl", "--data-dir", dir, "--search-product", "7"}, "")
	require.Equal(t, 0, code)
	require.Contains(t, out, "product_id=7")
}

func TestInteractiveMenuExit(t *testing.T) {
	dir := t.TempDir()
	out, code := captureRun(t, []string{"jewelctl", "--data-dir", dir}, "0\n")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Exit")
}
