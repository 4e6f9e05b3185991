package chunk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/wfunc/klyra-server/internal/config"
	"github.com/wfunc/klyra-server/internal/errors"
)

// Loader 拉取并解析LDtk区块文件
type Loader struct {
	baseURL string
	client  *http.Client
}

// NewLoader 创建加载器
func NewLoader(cfg *config.ChunkConfig) *Loader {
	return &Loader{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
		},
	}
}

// Fetch 拉取单个区块文件并解析
func (l *Loader) Fetch(ctx context.Context, filePath string) (*LDtkData, error) {
	// 路径中可能包含空格等需要转义的字符
	fullURL := l.baseURL + "/" + (&url.URL{Path: filePath}).EscapedPath()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrChunkFetch, "构造区块请求失败")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrChunkFetch, "拉取区块失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrChunkFetch,
			"HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var data LDtkData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.Wrap(err, errors.ErrChunkDecode, fmt.Sprintf("解析区块失败: %s", filePath))
	}

	return &data, nil
}
