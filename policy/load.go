package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSnapshot is the on-disk shape of the policy file: a flat list of
// (account, spaceId, srcStoreId, dstStoreId) rows, the simplest
// representation an operator can hand-author or generate.
type fileSnapshot struct {
	Replications []struct {
		Account    string `yaml:"account"`
		SpaceID    string `yaml:"spaceId"`
		SrcStoreID string `yaml:"srcStoreId"`
		DstStoreID string `yaml:"dstStoreId"`
	} `yaml:"replications"`
}

// LoadSnapshot reads a policy file (see fileSnapshot) and folds it into a
// Snapshot grouped by account.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("policy: read %q: %w", path, err)
	}
	var fs fileSnapshot
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return Snapshot{}, fmt.Errorf("policy: parse %q: %w", path, err)
	}

	byAccount := make(map[string]*TenantPolicy)
	var order []string
	for _, row := range fs.Replications {
		tp, ok := byAccount[row.Account]
		if !ok {
			tp = &TenantPolicy{Account: row.Account, Spaces: make(map[string][]StorePolicy)}
			byAccount[row.Account] = tp
			order = append(order, row.Account)
		}
		tp.Spaces[row.SpaceID] = append(tp.Spaces[row.SpaceID], StorePolicy{
			SrcStoreID: row.SrcStoreID,
			DstStoreID: row.DstStoreID,
		})
	}

	snap := Snapshot{Tenants: make([]TenantPolicy, 0, len(order))}
	for _, account := range order {
		snap.Tenants = append(snap.Tenants, *byAccount[account])
	}
	return snap, nil
}
