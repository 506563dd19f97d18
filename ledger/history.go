package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DrugHistory returns every committed state of a drug batch, oldest
// first. The underlying history is append-only: each committed mutation
// strictly extends the sequence. Fails if the batch was never written.
func (c *PharmaContract) DrugHistory(store EntityStore, drugName, serialNo string) ([]DrugBatch, *ContractError) {
	key := c.drugKey(serialNo, drugName)
	versions, err := store.History(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, NewNotFoundError(
				"drug does not exist",
				fmt.Sprintf("no drug record under key %q", key),
			)
		}
		return nil, AsContractError(err)
	}

	snapshots := make([]DrugBatch, len(versions))
	for i, value := range versions {
		if err := json.Unmarshal(value, &snapshots[i]); err != nil {
			return nil, newStoreError(fmt.Sprintf("decoding drug history %q version %d: %s", key, i, err.Error()))
		}
	}
	return snapshots, nil
}
