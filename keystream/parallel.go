package keystream

import (
	"runtime"
	"sync"
)

// ParallelDriver splits keystream generation across a fixed number of
// worker goroutines, each pre-advancing its own copy of the counter by its
// chunk's starting offset before generating — the Go translation of
// original_source/CEX/RCS.cpp's ProcessParallel, which computes each
// thread's counter as base + chunk_index * chunk_len / block_size rather
// than serializing through a shared counter.
type ParallelDriver struct {
	degree    int
	blockSize int
}

// NewParallelDriver constructs a driver with the given degree of
// parallelism (number of worker goroutines). A degree of 0 selects
// runtime.NumCPU(). blockSize must match the Generator's BlockSize().
func NewParallelDriver(degree, blockSize int) *ParallelDriver {
	if degree <= 0 {
		degree = runtime.NumCPU()
	}
	return &ParallelDriver{degree: degree, blockSize: blockSize}
}

// Fill generates len(dst) bytes of keystream starting at counter (which is
// left unmodified; each worker operates on its own copy) using gen, split
// across the driver's configured degree of parallelism. Results are
// written to dst in the same order a purely sequential Fill would produce.
func (p *ParallelDriver) Fill(gen Generator, dst []byte, counter []byte) {
	bs := p.blockSize
	totalBlocks := (len(dst) + bs - 1) / bs
	if totalBlocks == 0 {
		return
	}

	degree := p.degree
	if degree > totalBlocks {
		degree = totalBlocks
	}
	if degree <= 1 {
		Fill(gen, dst, append([]byte(nil), counter...))
		return
	}

	blocksPerWorker := (totalBlocks + degree - 1) / degree

	var wg sync.WaitGroup
	for w := 0; w < degree; w++ {
		startBlock := w * blocksPerWorker
		if startBlock >= totalBlocks {
			break
		}
		endBlock := startBlock + blocksPerWorker
		if endBlock > totalBlocks {
			endBlock = totalBlocks
		}

		startByte := startBlock * bs
		endByte := endBlock * bs
		if endByte > len(dst) {
			endByte = len(dst)
		}

		workerCounter := append([]byte(nil), counter...)
		IncrementBy(workerCounter, uint64(startBlock))

		wg.Add(1)
		go func(chunk []byte, ctr []byte) {
			defer wg.Done()
			Fill(gen, chunk, ctr)
		}(dst[startByte:endByte], workerCounter)
	}
	wg.Wait()
}
