// Package playlist 处理 HLS 媒体播放列表文本：解析切片条目、把相对文件名改写成发布后的地址。
// 这里的函数都是纯文本变换，不做任何 IO。
package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

const (
	header    = "#EXTM3U"
	extinfTag = "#EXTINF:"
)

// ErrNotPlaylist 文本不是合法的 m3u8
var ErrNotPlaylist = errors.New("playlist: missing #EXTM3U header")

// Entry 播放列表中的一个切片
type Entry struct {
	URI             string
	DurationSeconds float64
}

// Parse 按出现顺序返回切片条目。#EXTINF 缺失时时长为 0
func Parse(text string) ([]Entry, error) {
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries  []Entry
		pending  float64
		seenHead bool
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case !seenHead:
			if line != header {
				return nil, ErrNotPlaylist
			}
			seenHead = true
		case strings.HasPrefix(line, extinfTag):
			d, err := parseExtinf(line)
			if err != nil {
				return nil, err
			}
			pending = d
		case strings.HasPrefix(line, "#"):
			continue
		default:
			entries = append(entries, Entry{URI: line, DurationSeconds: pending})
			pending = 0
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenHead {
		return nil, ErrNotPlaylist
	}
	return entries, nil
}

// #EXTINF:<duration>,[<title>]
func parseExtinf(line string) (float64, error) {
	v := strings.TrimPrefix(line, extinfTag)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("playlist: bad EXTINF %q: %w", line, err)
	}
	return d, nil
}

// Rewrite 把每一行切片引用替换成 urls 中对应的地址。
// 以原始文件名为键，与行的顺序无关；注释行和未知引用原样保留。
func Rewrite(text string, urls map[string]string) string {
	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if u, ok := urls[trimmed]; ok {
			lines[i] = u
			continue
		}
		if u, ok := urls[path.Base(trimmed)]; ok {
			lines[i] = u
		}
	}
	return strings.Join(lines, "\n")
}
