package api

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

var errInfected = errors.New("malicious file detected")

// VirusScanner 扫描上传内容，发现威胁时返回 errInfected。
type VirusScanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 协议扫描。
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 返回 ClamdScanner；addr 为空时返回 nil，表示跳过扫描。
func NewClamdScanner(addr string) VirusScanner {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	return &ClamdScanner{addr: addr}
}

func (s *ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := clamd.NewClamd(s.addr).ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("clamd scan stream: %w", err)
	}

	var scanErr error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			scanErr = errInfected
		default:
			if scanErr == nil {
				scanErr = fmt.Errorf("clamd scan: %s", result.Description)
			}
		}
	}
	return scanErr
}
