package env

import (
	"encoding/json"
	"fmt"
	"os"
)

// Hosts is the cluster's host table: the driver's address and the fixed
// set of worker addresses a job can run tasks on, generalizing a single
// driver-address environment variable into a small JSON file so a job can
// address more than one worker.
type Hosts struct {
	Master string   `json:"master"`
	Slaves []string `json:"slaves"`
}

// LoadHosts reads a Hosts table from a JSON file at path. The file must
// contain a "master" address; a missing "slaves" array is not an error and
// loads as an empty list.
func LoadHosts(path string) (*Hosts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading host table %s: %w", path, err)
	}

	var h Hosts
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing host table %s: %w", path, err)
	}
	if h.Master == "" {
		return nil, fmt.Errorf("host table %s: missing \"master\"", path)
	}
	return &h, nil
}
