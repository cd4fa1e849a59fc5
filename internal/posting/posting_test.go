package posting

import "testing"

func TestIdentityNormalizes(t *testing.T) {
	a := &Posting{Title: "  Go   Developer ", Company: "ACME", Location: "Remote"}
	b := &Posting{Title: "go developer", Company: "acme", Location: "remote"}

	if a.Identity() != b.Identity() {
		t.Fatalf("expected equal identities, got %q vs %q", a.Identity(), b.Identity())
	}
	if a.Identity() != Identity("go developer@acme@remote") {
		t.Fatalf("unexpected identity %q", a.Identity())
	}
}

func TestIDExcludesLocation(t *testing.T) {
	p := &Posting{Title: "Go Developer", Company: "Acme", Location: "Remote"}
	if p.ID() != "go developer@acme" {
		t.Fatalf("unexpected id %q", p.ID())
	}
}

func TestSlugIsFilesystemSafe(t *testing.T) {
	p := &Posting{Title: "Sr. Engineer (Go/K8s)", Company: "Acme, Inc."}
	slug := p.Slug()
	for _, r := range slug {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		if !valid {
			t.Fatalf("slug %q contains invalid rune %q", slug, r)
		}
	}
}

func TestExcludeByCompany(t *testing.T) {
	p := &Postings{Items: []*Posting{
		{Title: "Role A", Company: "Alpha"},
		{Title: "Role B", Company: "Beta"},
		{Title: "Role C", Company: "Gamma"},
	}}

	removed := p.Exclude(FieldCompany, []string{"beta"})
	if len(removed) != 1 {
		t.Fatalf("expected 1 removed, got %v", removed)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", p.Len())
	}
	if p.FindByIdentity(Identity("role b@beta@")) != nil {
		t.Fatalf("expected Beta posting removed")
	}
}

func TestReportByCompanyGroups(t *testing.T) {
	p := &Postings{Items: []*Posting{
		{Title: "Role A", Company: "Alpha", Source: SourceDirect},
		{Title: "Role B", Company: "Alpha", Source: SourceAggregator},
		{Title: "Role C", Company: "Gamma"},
	}}

	report := p.ReportByCompany()
	if len(report["Alpha"]) != 2 {
		t.Fatalf("expected 2 Alpha entries, got %d", len(report["Alpha"]))
	}
	if report["Alpha"][1]["source"] != string(SourceAggregator) {
		t.Fatalf("unexpected source %q", report["Alpha"][1]["source"])
	}
}
