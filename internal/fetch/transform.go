package fetch

import (
	"fmt"
)

// Transform is one pure step applied to a fetch response before it reaches
// the ingest pipeline. Transforms run in declaration order; the first error
// drops the response.
type Transform func(Response) (Response, error)

// Apply runs the transforms in order.
func Apply(resp Response, transforms []Transform) (Response, error) {
	var err error
	for _, t := range transforms {
		resp, err = t(resp)
		if err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}

// RequireSuccess rejects responses outside the 2xx range.
func RequireSuccess() Transform {
	return func(resp Response) (Response, error) {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Response{}, fmt.Errorf("non-success status %d for %s", resp.StatusCode, resp.URL)
		}
		return resp, nil
	}
}

// MaxBodyBytes rejects responses whose body exceeds the limit.
func MaxBodyBytes(limit int) Transform {
	return func(resp Response) (Response, error) {
		if limit > 0 && len(resp.Body) > limit {
			return Response{}, fmt.Errorf("body of %s is %d bytes, limit %d", resp.URL, len(resp.Body), limit)
		}
		return resp, nil
	}
}

// EnsureFinalURL backfills FinalURL from URL when the transport did not
// record a redirect target.
func EnsureFinalURL() Transform {
	return func(resp Response) (Response, error) {
		if resp.FinalURL == "" {
			resp.FinalURL = resp.URL
		}
		return resp, nil
	}
}
