package accuratesync

import (
	"context"
	"net/url"
	"strconv"

	"github.com/davidtheosimaremare/hso/utils"
)

const (
	DefaultPageSize   = 100
	DefaultSort       = "transDate|desc"
	DefaultListFields = "id,number,transDate,statusName"
	defaultListAllCap = 10000
)

type Filter struct {
	Field string
	Op    string
	Val   string
}

type ListOptions struct {
	Fields   string
	Filters  []Filter
	Page     int
	PageSize int
	Sort     string
}

type ListResult struct {
	Items    []DocumentSummary
	RowCount int
}

// HasMore reports whether another page likely exists: a full page means more,
// a short page means this was the last one.
func (r *ListResult) HasMore(pageSize int) bool {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return len(r.Items) == pageSize
}

// ListPage fetches one page of <docType>/list.do.
func (c *Client) ListPage(ctx context.Context, docType string, opts ListOptions) (*ListResult, error) {
	fields := opts.Fields
	if fields == "" {
		fields = DefaultListFields
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	sort := opts.Sort
	if sort == "" {
		sort = DefaultSort
	}

	params := url.Values{}
	params.Set("fields", fields)
	for _, f := range opts.Filters {
		params.Set("filter."+f.Field+".op", f.Op)
		params.Set("filter."+f.Field+".val", f.Val)
	}
	params.Set("sp.page", strconv.Itoa(page))
	params.Set("sp.pageSize", strconv.Itoa(pageSize))
	params.Set("sp.sort", sort)

	body, err := c.Get(ctx, "/"+docType+"/list.do", params)
	if err != nil {
		return nil, err
	}

	var envelope listEnvelope
	if err := utils.UnmarshalFromJSON(body, &envelope); err != nil {
		return nil, &UpstreamError{Path: "/" + docType + "/list.do", Body: "malformed list payload: " + err.Error()}
	}
	return &ListResult{Items: envelope.D, RowCount: envelope.Sp.RowCount}, nil
}

// ListAll walks list.do pages until a short page or the limit is reached and
// returns at most limit summaries. Any page failure aborts the whole walk.
func (c *Client) ListAll(ctx context.Context, docType string, opts ListOptions, limit int) ([]DocumentSummary, error) {
	if limit <= 0 {
		limit = defaultListAllCap
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}

	var all []DocumentSummary
	for {
		pageOpts := opts
		pageOpts.Page = page
		pageOpts.PageSize = pageSize

		res, err := c.ListPage(ctx, docType, pageOpts)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if len(all) >= limit {
			return all[:limit], nil
		}
		if len(res.Items) < pageSize {
			return all, nil
		}
		page++
	}
}
