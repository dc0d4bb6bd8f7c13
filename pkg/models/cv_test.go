package models

import "testing"

func TestMergedProjectsPrefersTopLevel(t *testing.T) {
	cv := &ParsedCV{
		Projects: []Project{{Name: "top"}},
		Education: []Education{
			{AcademicProjects: []Project{{Name: "nested"}}},
		},
	}

	projects := cv.MergedProjects()
	if len(projects) != 1 || projects[0].Name != "top" {
		t.Errorf("MergedProjects() = %v, want top-level only", projects)
	}
}

func TestMergedProjectsFallsBackToEducation(t *testing.T) {
	cv := &ParsedCV{
		Education: []Education{
			{AcademicProjects: []Project{{Name: "thesis"}}},
			{AcademicProjects: []Project{{Name: "capstone"}}},
		},
	}

	projects := cv.MergedProjects()
	if len(projects) != 2 {
		t.Fatalf("MergedProjects() = %v, want 2 nested projects", projects)
	}
	if projects[0].Name != "thesis" || projects[1].Name != "capstone" {
		t.Errorf("MergedProjects() order = %v", projects)
	}
}

func TestMergedCertificationsFallsBackToEducation(t *testing.T) {
	cv := &ParsedCV{
		Education: []Education{
			{Certifications: []Certification{{Name: "CKA"}}},
		},
	}

	certs := cv.MergedCertifications()
	if len(certs) != 1 || certs[0].Name != "CKA" {
		t.Errorf("MergedCertifications() = %v, want nested cert", certs)
	}
}

func TestMergedSectionsEmpty(t *testing.T) {
	cv := &ParsedCV{}
	if got := cv.MergedProjects(); len(got) != 0 {
		t.Errorf("MergedProjects() = %v, want empty", got)
	}
	if got := cv.MergedCertifications(); len(got) != 0 {
		t.Errorf("MergedCertifications() = %v, want empty", got)
	}
}
