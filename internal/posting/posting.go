package posting

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	FieldIdentity = "Identity"
	FieldCompany  = "Company"
)

// Source distinguishes company-owned application pages from third-party
// listing sites.
type Source string

const (
	SourceDirect     Source = "DIRECT"
	SourceAggregator Source = "AGGREGATOR"
)

// Posting is an externally discovered job lead. Immutable once discovered.
type Posting struct {
	Title         string `yaml:"title" json:"title"`
	Company       string `yaml:"company" json:"company"`
	Location      string `yaml:"location,omitempty" json:"location,omitempty"`
	SalaryText    string `yaml:"salary_text,omitempty" json:"salary_text,omitempty"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	URL           string `yaml:"url,omitempty" json:"url,omitempty"`
	Source        Source `yaml:"source,omitempty" json:"source,omitempty"`
	FelonFriendly *bool  `yaml:"felon_friendly,omitempty" json:"felon_friendly,omitempty"`
}

// Identity is the normalized (title, company, location) tuple used for
// dedup and history lookups.
type Identity string

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Identity derives the stable key for the posting.
func (p *Posting) Identity() Identity {
	return Identity(fmt.Sprintf("%s@%s@%s", normalize(p.Title), normalize(p.Company), normalize(p.Location)))
}

// ID returns the human-readable queue key, e.g. "staff engineer@acme".
func (p *Posting) ID() string {
	return fmt.Sprintf("%s@%s", normalize(p.Title), normalize(p.Company))
}

// Slug returns a filesystem-friendly name for generated documents.
func (p *Posting) Slug() string {
	raw := normalize(p.Title) + "-" + normalize(p.Company)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case FieldIdentity:
		return string(p.Identity())
	case FieldCompany:
		return normalize(p.Company)
	default:
		return ""
	}
}

// Postings is a mutable working set of discovered leads.
type Postings struct {
	Items []*Posting
}

func (p *Postings) Len() int {
	return len(p.Items)
}

func (p *Postings) FindByIdentity(id Identity) *Posting {
	for _, item := range p.Items {
		if item.Identity() == id {
			return item
		}
	}
	return nil
}

// Exclude removes postings whose field matches one of the targets and
// returns the identities of the removed items.
func (p *Postings) Exclude(name string, targets []string) []string {
	var excluded []string
	for _, target := range targets {
		for idx, item := range p.Items {
			if item.GetStringField(name) == target {
				p.RemoveByIndex(idx)
				excluded = append(excluded, string(item.Identity()))
				break
			}
		}
	}
	return excluded
}

// RemoveByIndex removes a posting from the set by index. Does not preserve order.
func (p *Postings) RemoveByIndex(idx int) {
	p.Items[idx] = p.Items[len(p.Items)-1]
	p.Items = p.Items[:len(p.Items)-1]
}

// ReportByCompany groups the working set for display.
func (p *Postings) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range p.Items {
		entry := map[string]string{
			"title":    item.Title,
			"location": item.Location,
			"salary":   item.SalaryText,
			"url":      item.URL,
			"source":   string(item.Source),
		}
		report[item.Company] = append(report[item.Company], entry)
	}
	return report
}

func (p *Postings) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "postings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return file.Name(), nil
}
