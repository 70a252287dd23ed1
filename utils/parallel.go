// Package utils contains numeric and concurrency helpers shared by the other packages.
package utils

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

type (
	// MemberWorkFunc runs for each work item (member) of a group.
	MemberWorkFunc func(memberNum, workNum int)
	// GroupWorkFunc runs to determine what work members should do, if any.
	GroupWorkFunc func(groupNum, groupSize, from, to int) MemberWorkFunc
)

// GroupWorkParallel splits totalSize work items into contiguous groups, one per
// worker, and runs them concurrently. Every work index in [0, totalSize) is
// visited exactly once. A group that panics is logged and reported as an
// error, and the context is checked before each group starts.
func GroupWorkParallel(ctx context.Context, totalSize int, groupWork GroupWorkFunc) error {
	if totalSize <= 0 {
		return ctx.Err()
	}
	numGroups := ParallelFactor
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups
	extra := totalSize % numGroups

	var (
		wait   sync.WaitGroup
		errMu  sync.Mutex
		allErr error
	)
	storeError := func(err error) {
		errMu.Lock()
		allErr = multierr.Combine(allErr, err)
		errMu.Unlock()
	}

	finished := make([]bool, numGroups)
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to += extra
		}
		groupNumCopy := groupNum
		goutils.PanicCapturingGo(func() {
			defer wait.Done()
			groupNum := groupNumCopy
			if err := ctx.Err(); err != nil {
				storeError(err)
				finished[groupNum] = true
				return
			}
			if memberWork := groupWork(groupNum, to-from, from, to); memberWork != nil {
				memberNum := 0
				for workNum := from; workNum < to; workNum++ {
					memberWork(memberNum, workNum)
					memberNum++
				}
			}
			finished[groupNum] = true
		})
	}
	wait.Wait()
	for groupNum, ok := range finished {
		if !ok {
			allErr = multierr.Combine(allErr, errors.Errorf("group %d of parallel work panicked", groupNum))
		}
	}
	return allErr
}
