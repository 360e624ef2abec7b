package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andywolf/cde/internal/model"
)

const (
	defaultGitSubcommandTimeout = 10 * time.Second
	defaultMaxRecentCommits     = 100
	defaultMaxContributorCommits = 200
)

var archDecisionKeywords = []string{"refactor", "migrate", "redesign", "restructure", "architecture"}

// runGit shells out to the local git binary with cmd.Dir set to root,
// matching quorum-ai's adapters/git client idiom: an explicit timeout,
// buffered stdout/stderr, and no shell interpolation of caller input.
func runGit(ctx context.Context, root string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGitSubcommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %v timed out: %w", args, ctx.Err())
		}
		return "", fmt.Errorf("git %v failed: %w: %s", args, err, stderr.String())
	}
	return stdout.String(), nil
}

// AnalyseGit summarises the repository's recent history: commits within
// window_days, contributor rankings, churn hotspots, and architecture-
// decision commits.
func AnalyseGit(ctx context.Context, root string, windowDays int) (model.GitInsights, error) {
	insights := model.GitInsights{RepoPath: root}

	since := fmt.Sprintf("--since=%d.days", windowDays)
	logFormat := "--pretty=format:%h%x1f%an%x1f%ae%x1f%aI%x1f%s%x1e"

	raw, err := runGit(ctx, root, "log", since, fmt.Sprintf("-n%d", defaultMaxRecentCommits), logFormat, "--numstat")
	if err != nil {
		return insights, err
	}

	commits, contributorCounts, contributorFirstSeen, hotspotChurn := parseGitLog(raw)
	insights.CommitHistory = commits

	for _, c := range commits {
		if matchesAny(strings.ToLower(c.MessageFirstLine), archDecisionKeywords) {
			insights.ArchDecisions = append(insights.ArchDecisions, c)
		}
	}

	insights.Contributors = rankContributors(contributorCounts, contributorFirstSeen)
	insights.Hotspots = rankHotspots(hotspotChurn)
	insights.FrequencyLabel = frequencyLabel(len(commits))

	if branches, err := runGit(ctx, root, "branch", "--list"); err == nil {
		insights.ActiveBranches = parseBranches(branches)
	}

	if age, err := repoAgeDays(ctx, root); err == nil {
		insights.AgeDays = age
	}

	return insights, nil
}

func parseGitLog(raw string) ([]model.Commit, map[string]int, map[string]int, map[string]int) {
	const unitSep = "\x1f"
	const recordSep = "\x1e"

	records := strings.Split(raw, recordSep)
	var commits []model.Commit
	contributorCounts := map[string]int{}
	contributorFirstSeen := map[string]int{}
	hotspotChurn := map[string]int{}

	seenOrder := 0
	for _, rec := range records {
		rec = strings.TrimLeft(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		lines := strings.Split(rec, "\n")
		header := strings.Split(lines[0], unitSep)
		if len(header) < 5 {
			continue
		}
		commit := model.Commit{
			ShortHash:        header[0],
			Author:           header[1],
			Email:            header[2],
			ISODate:          header[3],
			MessageFirstLine: header[4],
		}

		for _, statLine := range lines[1:] {
			statLine = strings.TrimSpace(statLine)
			if statLine == "" {
				continue
			}
			fields := strings.Fields(statLine)
			if len(fields) < 3 {
				continue
			}
			ins, _ := strconv.Atoi(fields[0])
			del, _ := strconv.Atoi(fields[1])
			path := fields[2]
			commit.Insertions += ins
			commit.Deletions += del
			commit.FileCount++
			hotspotChurn[path] += ins + del
		}

		commits = append(commits, commit)

		key := commit.Author + "|" + commit.Email
		if _, ok := contributorFirstSeen[key]; !ok {
			contributorFirstSeen[key] = seenOrder
			seenOrder++
		}
		contributorCounts[key]++
	}

	return commits, contributorCounts, contributorFirstSeen, hotspotChurn
}

func rankContributors(counts, firstSeen map[string]int) []model.Contributor {
	contributors := make([]model.Contributor, 0, len(counts))
	for key, count := range counts {
		parts := strings.SplitN(key, "|", 2)
		name, email := parts[0], ""
		if len(parts) == 2 {
			email = parts[1]
		}
		contributors = append(contributors, model.Contributor{Name: name, Email: email, CommitCount: count})
	}
	sort.SliceStable(contributors, func(i, j int) bool {
		if contributors[i].CommitCount != contributors[j].CommitCount {
			return contributors[i].CommitCount > contributors[j].CommitCount
		}
		ki := contributors[i].Name + "|" + contributors[i].Email
		kj := contributors[j].Name + "|" + contributors[j].Email
		return firstSeen[ki] < firstSeen[kj]
	})
	if len(contributors) > defaultMaxContributorCommits {
		contributors = contributors[:defaultMaxContributorCommits]
	}
	return contributors
}

func rankHotspots(churn map[string]int) []string {
	type pathChurn struct {
		path  string
		churn int
	}
	items := make([]pathChurn, 0, len(churn))
	for p, c := range churn {
		items = append(items, pathChurn{path: p, churn: c})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].churn != items[j].churn {
			return items[i].churn > items[j].churn
		}
		return items[i].path < items[j].path
	})
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.path)
	}
	return out
}

func frequencyLabel(commitCount int) model.FrequencyLabel {
	switch {
	case commitCount >= 20:
		return model.FrequencyVeryActive
	case commitCount >= 10:
		return model.FrequencyModerate
	case commitCount >= 1:
		return model.FrequencyLow
	default:
		return model.FrequencyUnknown
	}
}

func parseBranches(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func repoAgeDays(ctx context.Context, root string) (int, error) {
	raw, err := runGit(ctx, root, "log", "--reverse", "--pretty=format:%aI", "-n1")
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("no commits")
	}
	firstCommit, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, err
	}
	return int(time.Since(firstCommit).Hours() / 24), nil
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
