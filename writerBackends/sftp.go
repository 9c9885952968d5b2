package writerbackends

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"mediaworker/logger"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPStore uploads into <root>/<bucket>/<key> on a remote server. A new SSH
// session is opened per upload.
type SFTPStore struct {
	host   string
	port   string
	user   string
	root   string
	config *ssh.ClientConfig
}

// NewSFTPStore validates accessInfo. It should contain at least: host, user.
// Optionally: port (default 22), root (default /), password or privateKey (base64 or raw PEM).
func NewSFTPStore(accessInfo map[string]string) (*SFTPStore, error) {
	host := accessInfo["host"]
	user := accessInfo["user"]
	if host == "" || user == "" {
		return nil, fmt.Errorf("missing required accessInfo keys: host, user")
	}
	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}
	root := accessInfo["root"]
	if root == "" {
		root = "/"
	}

	var auths []ssh.AuthMethod
	if privateKey := accessInfo["privateKey"]; privateKey != "" {
		// try to decode as base64, fall back to raw
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if password := accessInfo["password"]; password != "" {
		auths = append(auths, ssh.Password(password))
	} else {
		return nil, fmt.Errorf("no auth method provided; set password or privateKey in accessInfo")
	}

	return &SFTPStore{
		host: host,
		port: port,
		user: user,
		root: root,
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            auths,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		},
	}, nil
}

func (s *SFTPStore) remotePath(bucket, key string) string {
	return path.Join(s.root, bucket, key)
}

func (s *SFTPStore) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	addr := net.JoinHostPort(s.host, s.port)

	// Dial respecting context
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, s.config)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	// closing the connection unblocks a stalled copy when ctx ends
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer sftpClient.Close()

	remotePath := s.remotePath(bucket, key)
	dir := path.Dir(remotePath)
	if err := mkdirAllSFTP(sftpClient, dir); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", dir, err)
	}

	partPath := remotePath + ".part"
	f, err := sftpClient.Create(partPath)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", partPath, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		sftpClient.Remove(partPath)
		return fmt.Errorf("copy to remote file %s: %w", partPath, err)
	}
	if err := f.Close(); err != nil {
		sftpClient.Remove(partPath)
		return fmt.Errorf("close remote file %s: %w", partPath, err)
	}
	if err := sftpClient.PosixRename(partPath, remotePath); err != nil {
		sftpClient.Remove(partPath)
		return fmt.Errorf("rename %s: %w", partPath, err)
	}

	logger.Infof("Successfully uploaded '%s' to %s", remotePath, addr)
	return nil
}

// PresignGet returns the sftp:// address of the object. SFTP has no notion of
// expiring links, so ttl is ignored.
func (s *SFTPStore) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u := url.URL{
		Scheme: "sftp",
		User:   url.User(s.user),
		Host:   net.JoinHostPort(s.host, s.port),
		Path:   s.remotePath(bucket, key),
	}
	return u.String(), nil
}

func (s *SFTPStore) Close() error { return nil }

// mkdirAllSFTP mimics os.MkdirAll for an SFTP server by creating each segment of the path.
func mkdirAllSFTP(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	parts := strings.Split(dir, "/")
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}

	for _, p := range parts {
		if p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if _, err := client.Stat(cur); err != nil {
			if os.IsNotExist(err) {
				if err := client.Mkdir(cur); err != nil {
					return fmt.Errorf("mkdir %s: %w", cur, err)
				}
			} else {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
		}
	}
	return nil
}
