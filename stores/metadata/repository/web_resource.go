package repository

import (
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	ipfsapi "github.com/ipfs/go-ipfs-api"
	"golang.org/x/xerrors"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
)

const ipfsPrefix = "ipfs://"

type webResourceRepo struct {
	shell      *ipfsapi.Shell
	httpClient *http.Client
	ctxTimeout time.Duration
}

// NewWebResourceRepo reads token metadata from ipfs (via a node api) or plain
// http
func NewWebResourceRepo(shell *ipfsapi.Shell, timeout time.Duration) domain.WebResourceRepo {
	return &webResourceRepo{
		shell:      shell,
		httpClient: &http.Client{Timeout: timeout},
		ctxTimeout: timeout,
	}
}

func (r *webResourceRepo) Get(c ctx.Ctx, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, ipfsPrefix) {
		return r.getIpfs(c, strings.TrimPrefix(uri, ipfsPrefix))
	}
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return r.getHttp(c, uri)
	}
	return nil, xerrors.Errorf("unsupported uri scheme: %s", uri)
}

func (r *webResourceRepo) getIpfs(c ctx.Ctx, cid string) ([]byte, error) {
	ctx, cancel := ctx.WithTimeout(c, r.ctxTimeout)
	defer cancel()
	resp, err := r.shell.Request("cat", cid).Send(ctx)
	if err != nil {
		c.WithField("err", err).Error("shell.Request failed")
		return nil, err
	}
	if resp.Error != nil {
		c.WithField("resp.Error", resp.Error).Error("shell.Request failed")
		return nil, resp.Error
	}
	defer resp.Output.Close()
	return ioutil.ReadAll(resp.Output)
}

func (r *webResourceRepo) getHttp(c ctx.Ctx, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(c, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		c.WithField("err", err).Error("httpClient.Do failed")
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.WithFields(log.Fields{
			"url":        uri,
			"statusCode": resp.StatusCode,
		}).Error("resp.StatusCode != 200")
		return nil, xerrors.Errorf("resp.StatusCode != 200")
	}
	return ioutil.ReadAll(resp.Body)
}
