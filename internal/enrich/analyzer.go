// Package enrich derives profile attributes from resume text and turns
// uploaded documents and HTML job descriptions into plain text.
package enrich

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Profile is the enrichment result stored on an actor.
type Profile struct {
	Skills       []string
	EstimatedYOE *float64
}

// DefaultSkills is the vocabulary the analyzer recognizes when none is given.
var DefaultSkills = []string{
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript", "C++", "C#", "Rust", "Ruby", "Kotlin", "Swift",
	"React", "Vue", "Angular", "Node.js", "Django", "Flask", "Spring",
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Kafka", "Elasticsearch", "SQL", "NoSQL",
	"Docker", "Kubernetes", "Terraform", "AWS", "Azure", "GCP", "Linux",
	"GraphQL", "REST", "gRPC", "Microservices", "Git", "CI/CD",
	"Machine Learning", "Data Science", "DevOps", "Recruiting", "Sourcing", "Onboarding",
}

var (
	yearsPattern = regexp.MustCompile(`(?i)(\d{1,2}(?:\.\d)?)\s*\+?\s*(?:years?|yrs?)\b`)
	rangePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2})\s*(?:-|–|to)\s*((?:19|20)\d{2}|present|current|now)\b`)
)

// Analyzer is a deterministic keyword and pattern based profile enricher.
type Analyzer struct {
	skills   []skillPattern
	maxYears float64
	now      func() time.Time
}

type skillPattern struct {
	name string
	re   *regexp.Regexp
}

// NewAnalyzer builds an analyzer for the given skill vocabulary.
// A nil vocabulary selects DefaultSkills.
func NewAnalyzer(vocabulary []string) *Analyzer {
	if vocabulary == nil {
		vocabulary = DefaultSkills
	}
	a := &Analyzer{maxYears: 50, now: time.Now}
	for _, s := range vocabulary {
		// \b does not work around symbols such as C++ or C#, so bound on non-word runes instead.
		// Short and all-caps names ("Go", "SQL", "REST") match case-sensitively.
		flags := "(?i)"
		if len(s) <= 4 || s == strings.ToUpper(s) {
			flags = ""
		}
		re := regexp.MustCompile(flags + `(?:^|[^\w])` + regexp.QuoteMeta(s) + `(?:$|[^\w+#])`)
		a.skills = append(a.skills, skillPattern{name: s, re: re})
	}
	return a
}

// Analyze extracts the skills found in text and estimates years of experience.
// It has no side effects.
func (a *Analyzer) Analyze(text string) Profile {
	var p Profile
	if strings.TrimSpace(text) == "" {
		return p
	}

	seen := make(map[string]bool)
	for _, s := range a.skills {
		if s.re.MatchString(text) && !seen[s.name] {
			seen[s.name] = true
			p.Skills = append(p.Skills, s.name)
		}
	}
	sort.Strings(p.Skills)

	if yoe, ok := a.estimateYears(text); ok {
		p.EstimatedYOE = &yoe
	}
	return p
}

// estimateYears prefers an explicit "N years" statement and otherwise spans
// the earliest start year to the latest end year of any employment ranges.
func (a *Analyzer) estimateYears(text string) (float64, bool) {
	var best float64
	found := false
	for _, m := range yearsPattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v > a.maxYears {
			continue
		}
		if v > best {
			best = v
		}
		found = true
	}
	if found {
		return best, true
	}

	thisYear := a.now().Year()
	first, last := 0, 0
	for _, m := range rangePattern.FindAllStringSubmatch(text, -1) {
		start, _ := strconv.Atoi(m[1])
		end := thisYear
		if y, err := strconv.Atoi(m[2]); err == nil {
			end = y
		}
		if start > end || end > thisYear {
			continue
		}
		if first == 0 || start < first {
			first = start
		}
		if end > last {
			last = end
		}
	}
	if first == 0 {
		return 0, false
	}
	return float64(last - first), true
}
