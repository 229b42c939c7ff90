package artwork

// Column names of the artwork table. These are part of the external
// contract: filters and sort orders refer to them by name.
const (
	ColumnID            = "_id"
	ColumnToken         = "token"
	ColumnTitle         = "title"
	ColumnByline        = "byline"
	ColumnAttribution   = "attribution"
	ColumnPersistentURI = "persistent_uri"
	ColumnWebURI        = "web_uri"
	ColumnMetadata      = "metadata"
	ColumnData          = "_data"
	ColumnDateAdded     = "date_added"
	ColumnDateModified  = "date_modified"
)

// Columns lists every column in table order.
var Columns = []string{
	ColumnID,
	ColumnToken,
	ColumnTitle,
	ColumnByline,
	ColumnAttribution,
	ColumnPersistentURI,
	ColumnWebURI,
	ColumnMetadata,
	ColumnData,
	ColumnDateAdded,
	ColumnDateModified,
}

// IsColumn reports whether name is a known column.
func IsColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
