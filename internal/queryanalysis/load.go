package queryanalysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

// LoadRecords reads query records from a YAML or JSON file holding either a
// list of records or a mapping with a "queries" list. Records without an id
// are numbered from 1 in file order.
func LoadRecords(path string) ([]models.QueryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	return ParseRecords(data)
}

// ParseRecords decodes the LoadRecords file format.
func ParseRecords(data []byte) ([]models.QueryRecord, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}

	var records []models.QueryRecord
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
		var wrapper struct {
			Queries []models.QueryRecord `yaml:"queries"`
		}
		if err := node.Decode(&wrapper); err != nil {
			return nil, fmt.Errorf("parsing query file: %w", err)
		}
		records = wrapper.Queries
	} else if len(node.Content) > 0 {
		if err := node.Decode(&records); err != nil {
			return nil, fmt.Errorf("parsing query file: %w", err)
		}
	}

	for i := range records {
		if records[i].ID == 0 {
			records[i].ID = i + 1
		}
	}
	return records, nil
}
