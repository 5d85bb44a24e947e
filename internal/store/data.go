// Package store implements the Artifact Store: a small key-value
// interface keyed by job id, with sub-keys for the job's status document
// and its two output artifacts. Two backends share the interface so a
// single-instance deployment can run on MemoryStore while a multi-node
// deployment swaps in ObjectStore without touching any caller.
package store

// Key names the blob within a job's namespace. These match the literal
// file names the object-store backend writes under jobs/<job_id>/.
type Key string

const (
	KeyStatus      Key = "status.json"
	KeyLlmTxt      Key = "llm.txt"
	KeyLlmsFullTxt Key = "llms-full.txt"
)
