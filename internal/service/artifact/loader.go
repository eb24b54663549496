// Package artifact loads trained model and scaler artifacts from disk.
// Artifacts are JSON files exported by the training pipeline, one per
// (currency pair, period), named like EURUSD_h1.json.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/erpesh/forex-server/internal/domain/models"
	domsvc "github.com/erpesh/forex-server/internal/domain/service"
	"github.com/erpesh/forex-server/internal/service/preprocess"
)

// file schema of one exported artifact
type artifactFile struct {
	Scaler MinMaxScaler `json:"scaler"`
	LSTM   LSTM         `json:"lstm"`
}

// Loader reads artifacts from a directory, caching parsed models so repeat
// recomputes for the same pair+period skip disk and JSON work. Cached
// entries are immutable.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*artifactFile
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]*artifactFile)}
}

// Load returns the model and scaler for pairName+periodName, or
// models.ErrArtifactNotFound when no trained artifact exists.
func (l *Loader) Load(pairName, periodName string) (domsvc.Model, domsvc.Scaler, error) {
	key := strings.ToUpper(pairName) + "_" + strings.ToLower(periodName)

	l.mu.RLock()
	af, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return &af.LSTM, &af.Scaler, nil
	}

	path := filepath.Join(l.dir, key+".json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", models.ErrArtifactNotFound, key)
		}
		return nil, nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	af = &artifactFile{}
	if err := json.Unmarshal(b, af); err != nil {
		return nil, nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if err := af.Scaler.validate(); err != nil {
		return nil, nil, fmt.Errorf("artifact %s: %w", key, err)
	}
	if err := af.LSTM.validate(preprocess.NumFeatures); err != nil {
		return nil, nil, fmt.Errorf("artifact %s: %w", key, err)
	}

	l.mu.Lock()
	l.cache[key] = af
	l.mu.Unlock()
	return &af.LSTM, &af.Scaler, nil
}

var _ domsvc.ArtifactLoader = (*Loader)(nil)
