// Package slavemem provides a passive memory slave for the split-transaction
// burst bus. The component never initiates transactions. It exposes any
// number of independent port groups, each with its own write command, write
// data, write response, read command, and read data channel, all serving one
// shared byte store. Per-byte error maps inject response codes into the
// normal response path, and per-channel monitors republish each completed
// beat one cycle after it commits.
package slavemem
