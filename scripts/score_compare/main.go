package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type targets struct {
	Students []string `json:"students"`
	// Critical students fail the run on any diff; others are reported only.
	Critical []string `json:"critical"`
}

type profile struct {
	StudentID       string          `json:"student_id"`
	Academic        decimal.Decimal `json:"academic"`
	Challenges      decimal.Decimal `json:"challenges"`
	Mastery         decimal.Decimal `json:"mastery"`
	Seminars        decimal.Decimal `json:"seminars"`
	Extracurricular decimal.Decimal `json:"extracurricular"`
	Composite       decimal.Decimal `json:"composite"`
	Tier            string          `json:"tier"`
}

type envelope struct {
	Data *profile `json:"data"`
}

type comparison struct {
	StudentID         string
	Critical          bool
	BaselineStatus    int
	CandidateStatus   int
	Diffs             []string
	Error             error
	DurationBase      time.Duration
	DurationCandidate time.Duration
}

func (c comparison) matches() bool {
	return c.Error == nil && c.BaselineStatus == c.CandidateStatus && len(c.Diffs) == 0
}

func main() {
	var (
		baselineBase  string
		candidateBase string
		targetsPath   string
		token         string
		tolerance     string
		timeout       time.Duration
	)

	flag.StringVar(&baselineBase, "baseline", "http://localhost:8080/api/v1", "Baseline API base URL")
	flag.StringVar(&candidateBase, "candidate", "http://localhost:8081/api/v1", "Candidate API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "score_compare", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&token, "token", os.Getenv("SCORE_COMPARE_TOKEN"), "Bearer token with staff access")
	flag.StringVar(&tolerance, "tolerance", "0.001", "Allowed absolute difference per score")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	tol, err := decimal.NewFromString(tolerance)
	if err != nil {
		log.Fatalf("invalid tolerance: %v", err)
	}
	tgt, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	critical := make(map[string]bool, len(tgt.Critical))
	for _, id := range tgt.Critical {
		critical[id] = true
	}

	client := &http.Client{Timeout: timeout}
	var (
		results      []comparison
		breaking     int
		optionalDiff int
	)
	for _, id := range tgt.Students {
		comp := compareStudent(client, baselineBase, candidateBase, token, id, tol)
		comp.Critical = critical[id]
		if !comp.matches() {
			if comp.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		results = append(results, comp)
	}

	printReport(results)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) (*targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targets
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Students) == 0 {
		return nil, fmt.Errorf("no students defined in %s", path)
	}
	return &cfg, nil
}

func compareStudent(client *http.Client, baselineBase, candidateBase, token, studentID string, tol decimal.Decimal) comparison {
	comp := comparison{StudentID: studentID}

	base, baseStatus, baseDur, err := fetchProfile(client, baselineBase, token, studentID)
	comp.DurationBase = baseDur
	if err != nil {
		comp.Error = fmt.Errorf("baseline: %w", err)
		return comp
	}
	cand, candStatus, candDur, err := fetchProfile(client, candidateBase, token, studentID)
	comp.DurationCandidate = candDur
	if err != nil {
		comp.Error = fmt.Errorf("candidate: %w", err)
		return comp
	}
	comp.BaselineStatus = baseStatus
	comp.CandidateStatus = candStatus
	if base != nil && cand != nil {
		comp.Diffs = diffProfiles(base, cand, tol)
	}
	return comp
}

func fetchProfile(client *http.Client, base, token, studentID string) (*profile, int, time.Duration, error) {
	if client == nil {
		return nil, 0, 0, errors.New("nil client")
	}
	url := fmt.Sprintf("%s/students/%s/score", strings.TrimRight(base, "/"), studentID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, 0, err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, elapsed, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, elapsed, nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, resp.StatusCode, elapsed, fmt.Errorf("decode profile: %w", err)
	}
	return env.Data, resp.StatusCode, elapsed, nil
}

// diffProfiles ignores computed_at, config_version and stale; only scores and tier count.
func diffProfiles(a, b *profile, tol decimal.Decimal) []string {
	var diffs []string
	scores := []struct {
		name string
		a, b decimal.Decimal
	}{
		{"academic", a.Academic, b.Academic},
		{"challenges", a.Challenges, b.Challenges},
		{"mastery", a.Mastery, b.Mastery},
		{"seminars", a.Seminars, b.Seminars},
		{"extracurricular", a.Extracurricular, b.Extracurricular},
		{"composite", a.Composite, b.Composite},
	}
	for _, s := range scores {
		if s.a.Sub(s.b).Abs().GreaterThan(tol) {
			diffs = append(diffs, fmt.Sprintf("%s: %s != %s", s.name, s.a.String(), s.b.String()))
		}
	}
	if a.Tier != b.Tier {
		diffs = append(diffs, fmt.Sprintf("tier: %s != %s", a.Tier, b.Tier))
	}
	return diffs
}

func printReport(results []comparison) {
	fmt.Println("Score Compare Report")
	fmt.Println("====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s\n", status, res.StudentID)
		fmt.Printf("  Baseline Status: %d (%s)\n", res.BaselineStatus, res.DurationBase)
		fmt.Printf("  Candidate Status: %d (%s)\n", res.CandidateStatus, res.DurationCandidate)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		for _, d := range res.Diffs {
			fmt.Printf("  %s\n", d)
		}
		fmt.Printf("  Critical: %t\n", res.Critical)
	}
}
