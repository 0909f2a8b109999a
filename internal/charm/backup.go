// ABOUTME: Archive snapshot into Charm KV, one key per memory and flowmo
// ABOUTME: Backup is one-way; the relational store stays the source of truth
package charm

import (
	"fmt"
	"time"

	"github.com/harper/secondme/internal/models"
)

// BackupResult summarizes one snapshot run
type BackupResult struct {
	Memories int       `json:"memories"`
	Flowmos  int       `json:"flowmos"`
	At       time.Time `json:"at"`
}

// Backup writes every memory and flowmo row into the KV store under
// prefixed keys, then records the snapshot timestamp and syncs once at
// the end.
func (c *Client) Backup(memories []models.Memory, flowmos []models.Flowmo) (*BackupResult, error) {
	autoSync := c.config.AutoSync
	c.config.AutoSync = false
	defer func() { c.config.AutoSync = autoSync }()

	for _, mem := range memories {
		if err := c.SetJSON(MemoryKey(mem.ID), mem); err != nil {
			return nil, fmt.Errorf("failed to back up memory %s: %w", mem.ID, err)
		}
	}
	for _, f := range flowmos {
		if err := c.SetJSON(FlowmoKey(f.ID), f); err != nil {
			return nil, fmt.Errorf("failed to back up flowmo %s: %w", f.ID, err)
		}
	}

	result := &BackupResult{
		Memories: len(memories),
		Flowmos:  len(flowmos),
		At:       time.Now().UTC(),
	}
	if err := c.SetJSON(LastBackupKey(), result); err != nil {
		return nil, fmt.Errorf("failed to record backup timestamp: %w", err)
	}

	if err := c.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync backup: %w", err)
	}
	return result, nil
}

// Status reports the backed-up entity counts and the last snapshot time
func (c *Client) Status() (*BackupResult, error) {
	memKeys, err := c.ListKeys(MemoryPrefix)
	if err != nil {
		return nil, err
	}
	flowmoKeys, err := c.ListKeys(FlowmoPrefix)
	if err != nil {
		return nil, err
	}

	status := &BackupResult{
		Memories: len(memKeys),
		Flowmos:  len(flowmoKeys),
	}

	var last BackupResult
	if err := c.GetJSON(LastBackupKey(), &last); err == nil {
		status.At = last.At
	}
	return status, nil
}
