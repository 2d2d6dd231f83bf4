// Package packer splits a report into byte-bounded batches for one channel
// profile and annotates them with "[batch i/N]" markers.
//
// Sizes are UTF-8 byte lengths. A group heading always travels with the first
// item of its group, and a block heading (statistics, new titles, failed
// sources) always travels with the first unit of its block.
package packer
