package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/mctn/comtracker/internal/config"
)

// configMu serialises access to the running config and its file.
var configMu sync.Mutex

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file"` // path to the active config file
	// RestartRequired is set after an update: sources, report and LLM
	// settings are read once at startup.
	RestartRequired bool `json:"restart_required,omitempty"`
}

// handleGetConfig returns the current (running) configuration.
// Secrets are excluded via json:"-" tags.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	defer configMu.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.cfg.FilePath(),
		},
	})
}

// handleUpdateConfig merges the provided partial configuration into the
// running config, validates it and persists it to disk.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var incoming config.Config
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&incoming); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	configMu.Lock()
	defer configMu.Unlock()

	merged := *s.cfg
	mergeConfig(&merged, &incoming)
	if err := merged.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfgPath := merged.FilePath()
	if err := config.SaveToFile(&merged, cfgPath); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config: "+err.Error())
		return
	}
	*s.cfg = merged

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:          s.cfg,
			ConfigFile:      cfgPath,
			RestartRequired: true,
		},
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	configMu.Lock()
	keys := config.CheckAPIKeys(s.cfg)
	configMu.Unlock()

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}

// mergeConfig copies non-zero/non-empty values from src into dst. Secrets
// cannot be set through the API.
func mergeConfig(dst, src *config.Config) {
	// Sources are replaced as a whole.
	if len(src.Sources) > 0 {
		dst.Sources = src.Sources
		for i := range dst.Sources {
			dst.Sources[i] = config.NormalizeSource(dst.Sources[i])
		}
	}

	// Fetch
	if src.Fetch.Cap != 0 {
		dst.Fetch.Cap = src.Fetch.Cap
	}
	if src.Fetch.TimeoutSec != 0 {
		dst.Fetch.TimeoutSec = src.Fetch.TimeoutSec
	}
	if src.Fetch.CacheTTL != 0 {
		dst.Fetch.CacheTTL = src.Fetch.CacheTTL
	}
	if src.Fetch.FeedRate != 0 {
		dst.Fetch.FeedRate = src.Fetch.FeedRate
	}

	// Report
	if src.Report.Endpoint != "" {
		dst.Report.Endpoint = src.Report.Endpoint
		dst.Report.Enabled = src.Report.Enabled
	}

	// LLM
	if src.LLM.BaseURL != "" {
		dst.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.Model != "" {
		dst.LLM.Model = src.LLM.Model
	}
	if src.LLM.Temperature != 0 {
		dst.LLM.Temperature = src.LLM.Temperature
	}
	if src.LLM.MaxTokens != 0 {
		dst.LLM.MaxTokens = src.LLM.MaxTokens
	}
	if src.LLM.SystemPrompt != "" {
		dst.LLM.SystemPrompt = src.LLM.SystemPrompt
	}
	if src.LLM.ArticleLimit != 0 {
		dst.LLM.ArticleLimit = src.LLM.ArticleLimit
	}

	// API
	if src.API.Host != "" {
		dst.API.Host = src.API.Host
	}
	if src.API.Port != 0 {
		dst.API.Port = src.API.Port
	}
	if len(src.API.CORSOrigins) > 0 {
		dst.API.CORSOrigins = src.API.CORSOrigins
	}

	// Logging
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}
