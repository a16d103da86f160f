// Copyright 2026 The cmux-proxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package proxy

import (
	"io"
	"net"
	"sync"
)

// bufferPool supplies the fixed-size copy buffers used by splice, one
// per direction, so a slow reader on one side never grows memory on
// the other.
var bufferPool = sync.Pool{New: func() any {
	return make([]byte, 32*1024)
}}

// halfCloser is implemented by net.TCPConn and the raw connections
// net/http hands back from Hijack; CloseWrite lets splice half-close a
// direction without tearing down the whole connection.
type halfCloser interface {
	CloseWrite() error
}

// spliceResult reports the byte count copied in each direction and the
// first copy error, if any, once splice has finished.
type spliceResult struct {
	clientToUpstream int64
	upstreamToClient int64
	err              error
}

// splice runs a bidirectional byte copy between client and upstream
// until both directions have reached EOF or an error, half-closing
// each direction as it finishes and fully closing both connections
// once the copy is done. It never returns until both goroutines exit,
// so callers can safely clean up afterward.
//
// Each direction's error is handed back over errCh rather than written
// into a shared field directly, since both goroutines can fail at once
// (e.g. a reset upstream connection); res.err is only assigned after
// wg.Wait(), from the single goroutine that called splice, the same
// way the teacher's proxyDone channel keeps two copy loops from
// touching one piece of shared state.
func splice(client, upstream net.Conn) spliceResult {
	var res spliceResult
	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		n, err := pooledCopy(upstream, client)
		res.clientToUpstream = n
		errCh <- err
		if hc, ok := upstream.(halfCloser); ok {
			hc.CloseWrite()
		}
	}()

	go func() {
		defer wg.Done()
		n, err := pooledCopy(client, upstream)
		res.upstreamToClient = n
		errCh <- err
		if hc, ok := client.(halfCloser); ok {
			hc.CloseWrite()
		}
	}()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil && res.err == nil {
			res.err = err
		}
	}

	client.Close()
	upstream.Close()
	return res
}

// pooledCopy is io.CopyBuffer using a buffer on loan from bufferPool,
// so tunnels don't each allocate their own 32KiB scratch space.
func pooledCopy(dst io.Writer, src io.Reader) (int64, error) {
	buf := bufferPool.Get().([]byte)
	defer bufferPool.Put(buf)
	return io.CopyBuffer(dst, src, buf)
}
