package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"newsreel/internal/config"
	"newsreel/internal/deps"
	"newsreel/internal/pipeline"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckNtfy verifies the ntfy server behind topic answers its health endpoint.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Result{Name: name, Detail: "missing topic"}
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url %q", topic)}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health := parsed.Scheme + "://" + parsed.Host + "/v1/health"
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, health, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// ProviderStatus is the availability of one provider of one step.
type ProviderStatus struct {
	Step     string
	Required bool
	Priority int
	deps.Status
}

// CheckProviders evaluates every provider of every step.
func CheckProviders(steps []config.StepDefinition) []ProviderStatus {
	var (
		reqs  []deps.Requirement
		owner []ProviderStatus
	)
	for _, step := range steps {
		for _, p := range step.Providers {
			req := pipeline.NewCommandProvider(step.Name, p, nil).Requirement()
			req.Optional = !step.IsRequired()
			reqs = append(reqs, req)
			owner = append(owner, ProviderStatus{Step: step.Name, Required: step.IsRequired(), Priority: p.Priority})
		}
	}
	for i, status := range deps.CheckBinaries(reqs) {
		owner[i].Status = status
	}
	return owner
}

// CheckSteps reports, per step, whether at least one provider can run.
func CheckSteps(steps []config.StepDefinition) []Result {
	statuses := CheckProviders(steps)
	results := make([]Result, 0, len(steps))
	for _, step := range steps {
		var available, total []string
		for _, s := range statuses {
			if s.Step != step.Name {
				continue
			}
			total = append(total, s.Name)
			if s.Available {
				available = append(available, s.Name)
			}
		}
		label := "Step " + step.Name
		if !step.IsRequired() {
			label += " (optional)"
		}
		if len(available) == 0 {
			results = append(results, Result{
				Name:     label,
				Optional: !step.IsRequired(),
				Detail:   fmt.Sprintf("no available provider (%s)", strings.Join(total, ", ")),
			})
			continue
		}
		results = append(results, Result{
			Name:     label,
			Passed:   true,
			Optional: !step.IsRequired(),
			Detail:   fmt.Sprintf("%d/%d providers available (%s)", len(available), len(total), strings.Join(available, ", ")),
		})
	}
	return results
}
