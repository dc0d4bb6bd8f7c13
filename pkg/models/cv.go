package models

// Identity holds the candidate identity block of a parsed CV
type Identity struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
}

// Education represents a single education entry. Parsed CVs sometimes nest
// academic projects and certifications under the education entry they belong
// to instead of the top-level sections.
type Education struct {
	Institution      string          `json:"institution,omitempty"`
	Degree           string          `json:"degree,omitempty"`
	FieldOfStudy     string          `json:"field_of_study,omitempty"`
	StartDate        string          `json:"start_date,omitempty"`
	EndDate          string          `json:"end_date,omitempty"`
	AcademicProjects []Project       `json:"academic_projects,omitempty"`
	Certifications   []Certification `json:"certifications,omitempty"`
}

// Experience represents a single professional experience entry
type Experience struct {
	Role       string   `json:"role,omitempty"`
	Company    string   `json:"company,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Project represents a personal or academic project entry
type Project struct {
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

// Certification represents a certification entry
type Certification struct {
	Name   string `json:"name,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Year   string `json:"year,omitempty"`
}

// SkillsAnalysis holds the skill sets extracted from the CV text.
// ExplicitSkills are skills the CV states directly; JobRelatedSkills are
// context skills associated with the roles the candidate has held.
type SkillsAnalysis struct {
	ExplicitSkills   []string `json:"explicit_skills,omitempty"`
	JobRelatedSkills []string `json:"job_related_skills,omitempty"`
}

// ParsedCV is an immutable snapshot of structured candidate data, identified
// by a (candidate_id, timestamp) key in storage.
type ParsedCV struct {
	Identity       Identity        `json:"identity"`
	Education      []Education     `json:"education,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	SkillsAnalysis SkillsAnalysis  `json:"skills_analysis"`
}

// MergedProjects returns the top-level projects, falling back to academic
// projects nested under education entries when the top-level section is empty.
func (cv *ParsedCV) MergedProjects() []Project {
	if len(cv.Projects) > 0 {
		return cv.Projects
	}
	var merged []Project
	for _, edu := range cv.Education {
		merged = append(merged, edu.AcademicProjects...)
	}
	return merged
}

// MergedCertifications returns the top-level certifications, falling back to
// certifications nested under education entries when the top-level section is
// empty.
func (cv *ParsedCV) MergedCertifications() []Certification {
	if len(cv.Certifications) > 0 {
		return cv.Certifications
	}
	var merged []Certification
	for _, edu := range cv.Education {
		merged = append(merged, edu.Certifications...)
	}
	return merged
}
