package accuratesync

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/davidtheosimaremare/hso/utils"
)

// RetryPolicy bounds the detail fan-out: at most BatchSize concurrent
// fetches, MaxAttempts tries per document with RetryDelay between them, and
// BatchDelay between batches to stay under Accurate's rate limits.
type RetryPolicy struct {
	BatchSize   int
	MaxAttempts int
	RetryDelay  time.Duration
	BatchDelay  time.Duration

	sleep func(time.Duration)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BatchSize:   10,
		MaxAttempts: 2,
		RetryDelay:  300 * time.Millisecond,
		BatchDelay:  100 * time.Millisecond,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.BatchSize <= 0 {
		p.BatchSize = def.BatchSize
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.sleep == nil {
		p.sleep = time.Sleep
	}
	return p
}

// FetchFailure records one document whose detail could not be fetched after
// all attempts. Index points at the corresponding summary slot.
type FetchFailure struct {
	Index  int
	Number string
	Err    error
}

// FetchDetails fetches the detail of every summary, batched and in parallel
// within each batch. The returned slice is aligned with the input: slot i is
// the detail of summaries[i], or nil when that fetch failed. Failures never
// abort the remaining documents.
func (c *Client) FetchDetails(ctx context.Context, docType string, summaries []DocumentSummary, policy RetryPolicy) ([]*DocumentDetail, []FetchFailure) {
	policy = policy.normalized()

	results := make([]*DocumentDetail, len(summaries))
	var mu sync.Mutex
	var failures []FetchFailure

	for start := 0; start < len(summaries); start += policy.BatchSize {
		end := start + policy.BatchSize
		if end > len(summaries) {
			end = len(summaries)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				detail, err := c.fetchDetailWithRetry(ctx, docType, summaries[idx], policy)
				if err != nil {
					mu.Lock()
					failures = append(failures, FetchFailure{Index: idx, Number: summaries[idx].Number, Err: err})
					mu.Unlock()
					return
				}
				results[idx] = detail
			}(i)
		}
		wg.Wait()

		if end < len(summaries) && policy.BatchDelay > 0 {
			policy.sleep(policy.BatchDelay)
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	return results, failures
}

// FetchDetailsByNumber resolves documents by their human-readable number
// instead of id, with the same alignment and failure semantics as
// FetchDetails.
func (c *Client) FetchDetailsByNumber(ctx context.Context, docType string, numbers []string, policy RetryPolicy) ([]*DocumentDetail, []FetchFailure) {
	policy = policy.normalized()

	results := make([]*DocumentDetail, len(numbers))
	var mu sync.Mutex
	var failures []FetchFailure

	for start := 0; start < len(numbers); start += policy.BatchSize {
		end := start + policy.BatchSize
		if end > len(numbers) {
			end = len(numbers)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				params := url.Values{"number": {numbers[idx]}}
				detail, err := c.fetchDetailAttempts(ctx, docType, params, policy)
				if err != nil {
					mu.Lock()
					failures = append(failures, FetchFailure{Index: idx, Number: numbers[idx], Err: err})
					mu.Unlock()
					return
				}
				results[idx] = detail
			}(i)
		}
		wg.Wait()

		if end < len(numbers) && policy.BatchDelay > 0 {
			policy.sleep(policy.BatchDelay)
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	return results, failures
}

func (c *Client) fetchDetailWithRetry(ctx context.Context, docType string, summary DocumentSummary, policy RetryPolicy) (*DocumentDetail, error) {
	id := SanitizeInt(summary.ID)
	if id == nil {
		return nil, fmt.Errorf("document %q has no usable id", summary.Number)
	}
	return c.fetchDetailAttempts(ctx, docType, url.Values{"id": {strconv.Itoa(*id)}}, policy)
}

func (c *Client) fetchDetailAttempts(ctx context.Context, docType string, params url.Values, policy RetryPolicy) (*DocumentDetail, error) {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 && policy.RetryDelay > 0 {
			policy.sleep(policy.RetryDelay)
		}
		detail, err := c.fetchDetail(ctx, docType, params)
		if err == nil {
			return detail, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchDetail(ctx context.Context, docType string, params url.Values) (*DocumentDetail, error) {
	path := "/" + docType + "/detail.do"
	body, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var envelope detailEnvelope
	if err := utils.UnmarshalFromJSON(body, &envelope); err != nil {
		return nil, &UpstreamError{Path: path, Body: "malformed detail payload: " + err.Error()}
	}
	if envelope.D == nil {
		return nil, &UpstreamError{Path: path, Body: "empty detail payload"}
	}
	return envelope.D, nil
}
