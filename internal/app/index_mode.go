package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/pitwall/internal/platform/qdrant"
)

type VectorIndex string

const (
	VectorIndexScan   VectorIndex = "scan"
	VectorIndexQdrant VectorIndex = "qdrant"
)

type VectorIndexConfigErrorCode string

const (
	VectorIndexConfigErrorInvalidMode       VectorIndexConfigErrorCode = "invalid_mode"
	VectorIndexConfigErrorMissingQdrantURL  VectorIndexConfigErrorCode = "missing_qdrant_url"
	VectorIndexConfigErrorInvalidQdrantURL  VectorIndexConfigErrorCode = "invalid_qdrant_url"
	VectorIndexConfigErrorUnknownQdrantFail VectorIndexConfigErrorCode = "qdrant_config_error"
)

type VectorIndexConfigError struct {
	Code  VectorIndexConfigErrorCode
	Mode  string
	Cause error
}

func (e *VectorIndexConfigError) Error() string {
	if e == nil {
		return "invalid vector index config"
	}
	return fmt.Sprintf("invalid vector index config (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *VectorIndexConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type VectorIndexConfig struct {
	Mode   VectorIndex
	Qdrant qdrant.Config
}

// resolveVectorIndexConfig picks the nearest-neighbour backend. "scan" needs
// nothing; "qdrant" needs a valid QDRANT_URL.
func resolveVectorIndexConfig(cfg Config) (VectorIndexConfig, error) {
	mode := VectorIndex(strings.ToLower(strings.TrimSpace(cfg.VectorIndex)))
	switch mode {
	case "", VectorIndexScan:
		return VectorIndexConfig{Mode: VectorIndexScan}, nil
	case VectorIndexQdrant:
		qcfg := qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		}
		if qcfg.Collection == "" {
			qcfg.Collection = qdrant.DefaultCollection
		}
		if err := qdrant.ValidateConfig(qcfg); err != nil {
			return VectorIndexConfig{}, mapVectorIndexConfigError(string(mode), err)
		}
		return VectorIndexConfig{Mode: VectorIndexQdrant, Qdrant: qcfg}, nil
	default:
		return VectorIndexConfig{}, &VectorIndexConfigError{
			Code:  VectorIndexConfigErrorInvalidMode,
			Mode:  string(mode),
			Cause: fmt.Errorf("unsupported VECTOR_INDEX %q", mode),
		}
	}
}

func mapVectorIndexConfigError(mode string, err error) error {
	code := VectorIndexConfigErrorUnknownQdrantFail
	var qerr *qdrant.ConfigError
	if errors.As(err, &qerr) {
		switch qerr.Code {
		case qdrant.ConfigErrorMissingURL:
			code = VectorIndexConfigErrorMissingQdrantURL
		case qdrant.ConfigErrorInvalidURL:
			code = VectorIndexConfigErrorInvalidQdrantURL
		}
	}
	return &VectorIndexConfigError{Code: code, Mode: mode, Cause: err}
}
