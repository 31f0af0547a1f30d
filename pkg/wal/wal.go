package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 常用的權限常量
const (
	// rw------- (只有擁有者可讀寫) - 帳務資料
	FileModePrivate fs.FileMode = 0600

	// rwxr-xr-x - 目錄
	FileModeDir fs.FileMode = 0755
)

// ErrClosed WAL 已關閉
var ErrClosed = errors.New("wal: closed")

// WAL 是 append-only 的 JSON Lines 檔案，每筆寫入後 fsync 才回傳
type WAL struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	closed bool
}

// Open 開啟或建立一個 WAL 檔案 (上層目錄不存在時一併建立)
// O_APPEND 每次寫入時自動跳到文件末尾
func Open(path string) (*WAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), FileModeDir); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	return &WAL{file: file, path: path}, nil
}

// Path 檔案路徑
func (w *WAL) Path() string {
	return w.path
}

// Append 寫入一筆資料並刷入硬碟
func (w *WAL) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wal: encode: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("wal: write: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	return nil
}

// Replay 從頭依序讀出每一筆資料
//
// 檔尾若有寫到一半的紀錄 (寫入途中當機)，會截掉它並視為正常結束；
// 中間的壞資料則回傳錯誤。
func (w *WAL) Replay(fn func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek: %w", err)
	}

	decoder := json.NewDecoder(w.file)
	var offset int64
	for {
		var raw json.RawMessage
		err := decoder.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if err := w.file.Truncate(offset); err != nil {
				return fmt.Errorf("wal: truncate torn tail at %d: %w", offset, err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("wal: corrupt record at offset %d: %w", offset, err)
		}
		offset = decoder.InputOffset()
		if err := fn(raw); err != nil {
			return err
		}
	}
}

// Close 關閉檔案，重複呼叫不會出錯
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
