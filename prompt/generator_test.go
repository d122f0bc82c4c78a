package prompt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, chatConf *config.ChatConfig, completion string) *Generator {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]interface{}{
			"choices": []map[string]interface{}{{
				"message": map[string]string{"role": "assistant", "content": completion},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	chatConf.BaseUrl = srv.URL + "/v1"
	chatConf.Model = "test-model"
	chatConf.MaxTokens = 800
	chatClient := chat.NewClient(chatConf, status.NewNullReporter(), nil, log.NewNullLogger())

	dir := t.TempDir()
	themesFile := filepath.Join(dir, "themes.txt")
	stylesFile := filepath.Join(dir, "styles.txt")
	require.NoError(t, os.WriteFile(themesFile, []byte("space"), 0644))
	require.NoError(t, os.WriteFile(stylesFile, []byte("oil painting"), 0644))
	library, err := NewLibrary(&config.PromptConfig{ThemesFile: themesFile, StylesFile: stylesFile}, log.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(library.Close)

	return NewGenerator(library, chatClient, chatConf, log.NewNullLogger())
}

func TestGenerator_Random_TermsOnly(t *testing.T) {
	// without a base random prompt the terms are always used directly
	g := newTestGenerator(t, &config.ChatConfig{}, "unused")

	prompt, terms, err := g.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, terms, prompt)
	assert.Contains(t, prompt, "space")
	assert.Contains(t, prompt, "oil painting")
}

func TestGenerator_Random_WithBasePrompt(t *testing.T) {
	g := newTestGenerator(t, &config.ChatConfig{RandomPrompt: "Describe a surreal scene."}, "A surreal oil painting of space.")

	sawGenerated := false
	sawTermsOnly := false
	for i := 0; i < 50 && !(sawGenerated && sawTermsOnly); i++ {
		prompt, terms, err := g.Random(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, terms)
		if prompt == "A surreal oil painting of space." {
			sawGenerated = true
		} else if prompt == terms {
			sawTermsOnly = true
		}
	}
	assert.True(t, sawGenerated)
	assert.True(t, sawTermsOnly)
}

func TestGenerator_Fancy(t *testing.T) {
	g := newTestGenerator(t, &config.ChatConfig{FancyInstructions: "Make it ornate."}, `"An ornate scene."`)

	rewritten, err := g.Fancy(context.Background(), "a plain scene")
	require.NoError(t, err)
	assert.Equal(t, "An ornate scene.", rewritten)
}
