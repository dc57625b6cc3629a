package queue

import (
	"context"
	"fmt"
	"strings"

	"distq/internal/tree"
)

// bucketDepth is the number of segments in a full yyyy/MM/dd/HH/mm bucket.
const bucketDepth = 5

// PruneOptions controls which buckets Prune may delete.
type PruneOptions struct {
	// IncludeEntries allows deleting past buckets that still hold items.
	IncludeEntries bool
}

// PruneResult lists what Prune removed.
type PruneResult struct {
	// Deleted holds the removed buckets relative to the queue root.
	Deleted []string
	// Entries is the number of items removed with them.
	Entries int
}

// Prune deletes bucket folders below root that IsSafeToDelete reports as
// past relative to nowBucket. Without IncludeEntries only buckets holding no
// items are deleted. The bucket chain of nowBucket and future buckets are
// never touched.
func Prune(ctx context.Context, s *tree.Session, root tree.Node, nowBucket string, opts PruneOptions) (PruneResult, error) {
	var res PruneResult
	if err := pruneFolder(ctx, s, root.Path, "", 1, nowBucket, opts, &res, nil); err != nil {
		return res, err
	}
	return res, nil
}

func pruneFolder(ctx context.Context, s *tree.Session, path, rel string, depth int, nowBucket string, opts PruneOptions, res *PruneResult, onRetry func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, err := s.Children(ctx, path)
	if err != nil {
		return fmt.Errorf("prune %s: %w", path, err)
	}
	for _, child := range children {
		if child.Type != FolderType {
			continue
		}
		bucket := child.Name()
		if rel != "" {
			bucket = rel + "/" + bucket
		}

		if IsSafeToDelete(nowBucket, bucket) {
			items, err := s.Count(ctx, child.Path, ItemType)
			if err != nil {
				return fmt.Errorf("prune %s: %w", bucket, err)
			}
			if items == 0 || opts.IncludeEntries {
				if err := deleteNode(ctx, s, child.Path, onRetry); err != nil {
					return err
				}
				res.Deleted = append(res.Deleted, bucket)
				res.Entries += items
				continue
			}
		} else if !isCurrentChain(nowBucket, bucket) {
			continue
		}

		if depth < bucketDepth {
			if err := pruneFolder(ctx, s, child.Path, bucket, depth+1, nowBucket, opts, res, onRetry); err != nil {
				return err
			}
		}
	}
	return nil
}

// isCurrentChain reports whether bucket is a prefix of nowBucket.
func isCurrentChain(nowBucket, bucket string) bool {
	return strings.HasPrefix(nowBucket, bucket)
}
