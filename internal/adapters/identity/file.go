package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatsync/internal/core"
	"github.com/dkeye/chatsync/internal/domain"
)

var validate = validator.New()

var _ core.IdentityProvider = FileProvider{}

// FileProvider reads the current user persisted by the login flow as
// {"name": "...", "email": "..."}.
type FileProvider struct {
	Path string
}

func (p FileProvider) Current() (domain.Identity, error) {
	raw, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Identity{}, fmt.Errorf("%s: %w", p.Path, domain.ErrIdentityMissing)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("read identity: %w", err)
	}

	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return domain.Identity{}, fmt.Errorf("decode identity %s: %w", p.Path, err)
	}
	if err := validate.Struct(id); err != nil {
		return domain.Identity{}, fmt.Errorf("invalid identity: %w", err)
	}
	if err := id.Validate(); err != nil {
		return domain.Identity{}, err
	}

	log.Info().Str("module", "adapters.identity").Str("sid", string(id.SessionID())).Msg("identity resolved")
	return id, nil
}
