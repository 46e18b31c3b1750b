package snap

import "encoding/json"

// Action is one classified change between two imports. It is a closed sum:
// Created, Removed, Copied, Moved, Renamed, Archived, Modified. Each variant
// carries full record snapshots so a report can reconstruct the change
// without consulting the store again.
type Action interface {
	// Kind returns the variant name used as the $type tag in reports.
	Kind() string

	isAction()
}

// Created: the file exists only in the next import.
type Created struct {
	New FileRecord
}

// Removed: the file exists only in the previous import.
type Removed struct {
	Original FileRecord
}

// Copied: identical content appeared at a new path while the original
// survives unchanged at its old path.
type Copied struct {
	Original FileRecord
	Copy     FileRecord
}

// Moved: the single instance of the content now lives in a different
// directory under the same filename (or with both components changed).
type Moved struct {
	Original    FileRecord
	NewDirName  string
	NewMetadata map[string]string
}

// Renamed: same directory, different filename, same content.
type Renamed struct {
	Original    FileRecord
	NewBaseName string
	NewMetadata map[string]string
}

// Archived: a Moved whose destination is flagged as an archive location.
type Archived struct {
	Original    FileRecord
	NewDirName  string
	NewMetadata map[string]string
}

// Modified: same path, different content.
type Modified struct {
	Original    FileRecord
	NewModified float64
	NewSize     int64
	NewDigest   Digest
}

func (Created) Kind() string  { return "Created" }
func (Removed) Kind() string  { return "Removed" }
func (Copied) Kind() string   { return "Copied" }
func (Moved) Kind() string    { return "Moved" }
func (Renamed) Kind() string  { return "Renamed" }
func (Archived) Kind() string { return "Archived" }
func (Modified) Kind() string { return "Modified" }

func (Created) isAction()  {}
func (Removed) isAction()  {}
func (Copied) isAction()   {}
func (Moved) isAction()    {}
func (Renamed) isAction()  {}
func (Archived) isAction() {}
func (Modified) isAction() {}

func (a Created) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string      `json:"$type"`
		New  *FileRecord `json:"new"`
	}{a.Kind(), &a.New})
}

func (a Removed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string      `json:"$type"`
		Original *FileRecord `json:"original"`
	}{a.Kind(), &a.Original})
}

func (a Copied) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string      `json:"$type"`
		Original *FileRecord `json:"original"`
		Copy     *FileRecord `json:"copy"`
	}{a.Kind(), &a.Original, &a.Copy})
}

func (a Moved) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string            `json:"$type"`
		Original *FileRecord       `json:"original"`
		DirName  string            `json:"dir_name"`
		Metadata map[string]string `json:"metadata"`
	}{a.Kind(), &a.Original, a.NewDirName, a.NewMetadata})
}

func (a Renamed) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string            `json:"$type"`
		Original *FileRecord       `json:"original"`
		BaseName string            `json:"base_name"`
		Metadata map[string]string `json:"metadata"`
	}{a.Kind(), &a.Original, a.NewBaseName, a.NewMetadata})
}

func (a Archived) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string            `json:"$type"`
		Original *FileRecord       `json:"original"`
		DirName  string            `json:"dir_name"`
		Metadata map[string]string `json:"metadata"`
	}{a.Kind(), &a.Original, a.NewDirName, a.NewMetadata})
}

func (a Modified) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string      `json:"$type"`
		Original *FileRecord `json:"original"`
		Modified float64     `json:"modified"`
		Size     int64       `json:"size"`
		Digest   string      `json:"digest"`
	}{a.Kind(), &a.Original, a.NewModified, a.NewSize, a.NewDigest.Hex()})
}
