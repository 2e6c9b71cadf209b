package filestore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opsdesk/security-core/internal/core/domain"
)

// ReadSeed parses a credential document in the same format the file backend
// stores, for upserting into any backend at boot.
func ReadSeed(path string) ([]*domain.Principal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc credentialDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}

	out := make([]*domain.Principal, 0, len(doc.Employees))
	for _, r := range doc.Employees {
		out = append(out, r.toDomain())
	}
	return out, nil
}
