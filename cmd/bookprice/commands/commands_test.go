package commands

import (
	"bookprice-pipeline/internal/pipeline"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const cataloguePage = `<html><body>
<article class="product_pod">
  <h3><a href="a-light-in-the-attic_1000/index.html" title="A Light in the Attic">A Light in the ...</a></h3>
  <div class="product_price"><p class="price_color">Â£50.00</p></div>
</article>
<article class="product_pod">
  <h3><a href="tipping-the-velvet_999/index.html" title="Tipping the Velvet">Tipping the Velvet</a></h3>
  <div class="product_price"><p class="price_color">£53.74</p></div>
</article>
</body></html>`

type environment struct {
	dir    string
	config string
	output string
	key    string
}

func setup(t *testing.T, rateBody string) environment {
	catalogue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(cataloguePage))
	}))
	t.Cleanup(catalogue.Close)

	rates := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rateBody))
	}))
	t.Cleanup(rates.Close)

	dir := t.TempDir()
	env := environment{
		dir:    dir,
		config: filepath.Join(dir, "config.json5"),
		output: filepath.Join(dir, "data", "processed_books.json"),
		key:    filepath.Join(dir, "secret.key"),
	}

	contents := fmt.Sprintf(`{
  catalogue: { url: %q },
  rates: { url: %q },
  crypto: { key_file: %q },
  output: { file: %q },
  log: { file: %q },
  history: { database: %q },
}`,
		catalogue.URL,
		rates.URL+"/latest/{base}",
		env.key,
		env.output,
		filepath.Join(dir, "logs", "pipeline.log"),
		filepath.Join(dir, "history.db"),
	)
	require.NoError(t, os.WriteFile(env.config, []byte(contents), 0o644))
	return env
}

func (e environment) exec(t *testing.T, args ...string) (string, error) {
	out := bytes.NewBuffer(nil)
	err := execute(context.Background(), append([]string{"--config", e.config}, args...), out)
	return out.String(), err
}

func TestRunAndInspect(t *testing.T) {
	env := setup(t, `{"base": "GBP", "rates": {"USD": 1.25}}`)

	out, err := env.exec(t, "run")
	require.NoError(t, err)
	require.Contains(t, out, "pipeline finished", "logs must go to standard output")

	records, err := pipeline.ReadArtifact(env.output)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "A Light in the Attic", records[0].BookTitle)
	require.Equal(t, "62.5", records[0].RetailPriceUSD.String())
	require.Equal(t, "67.18", records[1].RetailPriceUSD.String())

	_, err = os.Stat(filepath.Join(env.dir, "logs", "pipeline.log"))
	require.NoError(t, err)

	out, err = env.exec(t, "show", "--decrypt")
	require.NoError(t, err)
	require.Contains(t, out, "A Light in the Attic")
	require.Contains(t, out, "37.50")
	require.Contains(t, out, "40.31")

	out, err = env.exec(t, "decrypt", *records[0].WholesaleCostSecret, *records[1].WholesaleCostSecret)
	require.NoError(t, err)
	require.Contains(t, out, "37.5")
	require.Contains(t, out, "40.31")

	out, err = env.exec(t, "history", "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, out, "completed")
	require.Contains(t, out, "1.25")

	out, err = env.exec(t, "keygen")
	require.NoError(t, err)
	require.Contains(t, out, "key already exists")
}

func TestRunFallsBackOnMalformedRates(t *testing.T) {
	env := setup(t, `{"rates": "unavailable"}`)

	_, err := env.exec(t, "run")
	require.NoError(t, err)

	records, err := pipeline.ReadArtifact(env.output)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "62.5", records[0].RetailPriceUSD.String())
}

func TestDecryptForeignToken(t *testing.T) {
	first := setup(t, `{"rates": {"USD": 1.25}}`)
	_, err := first.exec(t, "run")
	require.NoError(t, err)
	records, err := pipeline.ReadArtifact(first.output)
	require.NoError(t, err)

	second := setup(t, `{"rates": {"USD": 1.25}}`)
	out, err := second.exec(t, "keygen")
	require.NoError(t, err)
	require.Contains(t, out, "created key")

	out, err = second.exec(t, "decrypt", *records[0].WholesaleCostSecret)
	require.Error(t, err)
	require.Contains(t, out, "authentication failed")
}
