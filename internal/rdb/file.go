package rdb

import "os"

// DecodeFile reads and decodes the RDB snapshot at path. Grounded on
// _examples/upstash-rdb/file_reader.go's ReadFile, simplified to a single
// os.ReadFile since this format's trailer carries no CRC to validate
// incrementally and snapshots are loaded once, fully, at startup.
func DecodeFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
