package enums

import "fmt"

// ExportKind names a table the ops dashboard can export to a workbook.
type ExportKind string

const (
	ExportKindDrops   ExportKind = "drops"
	ExportKindBags    ExportKind = "bags"
	ExportKindMembers ExportKind = "members"
)

var validExportKinds = []ExportKind{
	ExportKindDrops,
	ExportKindBags,
	ExportKindMembers,
}

func (k ExportKind) IsValid() bool {
	for _, candidate := range validExportKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func ParseExportKind(value string) (ExportKind, error) {
	for _, candidate := range validExportKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid export kind %q", value)
}
