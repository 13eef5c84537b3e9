package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mvrodados/mvrodados/ai"
	"github.com/mvrodados/mvrodados/ai/aitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body><ol>
<li class="ui-search-layout__item">
  <a class="ui-search-link" href="https://articulo.mercadolibre.com.ar/MLA-1">
    <h2 class="ui-search-item__title">Honda Wave 110 S</h2>
  </a>
  <span class="andes-money-amount__fraction">1850000</span>
</li>
<li class="ui-search-layout__item">
  <h2 class="ui-search-item__title">Sin precio</h2>
</li>
<li class="ui-search-layout__item">
  <h2 class="ui-search-item__title">Honda Wave usada</h2>
  <span class="andes-money-amount__fraction">950.000</span>
</li>
</ol></body></html>`

func TestCleanQuery(t *testing.T) {
	assert.Equal(t, "honda wave 110", CleanQuery("buscar precio de honda wave 110 en MercadoLibre"))
	assert.Equal(t, "casco ls2", CleanQuery("Cotizar casco ls2 en internet"))
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1.850.000", FormatPrice("1850000"))
	assert.Equal(t, "950.000", FormatPrice("950.000"))
	assert.Equal(t, "999", FormatPrice("999"))
	assert.Equal(t, "consultar", FormatPrice("consultar"))
}

func TestSearchScrapesListing(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	fake := aitest.Reply("no se usa")
	out := New(ModeScrape, srv.URL, fake).Search(context.Background(), "buscar precio honda wave")

	assert.Equal(t, "/honda wave", gotPath)
	assert.True(t, strings.HasPrefix(out, `🔍 **Resultados de MercadoLibre para "honda wave"**`))
	assert.Contains(t, out, "**1. Honda Wave 110 S**\n💰 $1.850.000\n🔗 [Ver en MercadoLibre](https://articulo.mercadolibre.com.ar/MLA-1)")
	assert.Contains(t, out, "**2. Honda Wave usada**\n💰 $950.000")
	assert.NotContains(t, out, "Sin precio")
	assert.Contains(t, out, "*Encontrados 2 resultados relevantes*")
	assert.Equal(t, 0, fake.CallCount())
}

func TestSearchFallsBackToModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	fake := aitest.Reply("Entre $1.500.000 y $2.000.000.")
	out := New(ModeScrape, srv.URL, fake).Search(context.Background(), "precio honda wave")

	assert.True(t, strings.HasPrefix(out, "🔍 **Búsqueda: honda wave**"))
	assert.Contains(t, out, "Entre $1.500.000 y $2.000.000.")
	require.Equal(t, 1, fake.CallCount())
	assert.Equal(t, ai.Options{Temperature: 0.7, MaxTokens: 600}, fake.Opts[0])
}

func TestSearchSimulateUsesCannedTextWhenModelFails(t *testing.T) {
	out := New(ModeSimulate, "", aitest.Failing(errors.New("down"))).Search(context.Background(), "cotizar yamaha fz")
	assert.Equal(t, CannedReference("yamaha fz"), out)
}
