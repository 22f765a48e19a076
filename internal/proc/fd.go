package proc

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pranshuparmar/portman/pkg/model"
)

// FDCorrelator walks /proc/<pid>/fd and matches socket:[inode] links against
// the inodes of the raw socket entries. This is O(processes × fds); any
// process that vanishes or denies access mid-scan is skipped.
type FDCorrelator struct {
	Root   string
	Logger *slog.Logger
}

func (c *FDCorrelator) Correlate(entries []model.RawSocket) map[string]model.ProcessInfo {
	owners := make(map[string]model.ProcessInfo)

	wanted := make(map[string]bool, len(entries))
	for _, e := range entries {
		// TIME_WAIT and similar orphaned sockets report inode 0.
		if e.Key != "" && e.Key != "0" {
			wanted[e.Key] = true
		}
	}
	if len(wanted) == 0 {
		return owners
	}

	pids, err := listPIDs(c.Root)
	if err != nil {
		c.logger().Debug("process table unreadable", "root", c.Root, "error", err)
		return owners
	}

	users := make(map[uint32]string)
	for _, pid := range pids {
		c.scanProcess(pid, wanted, owners, users)
		if len(owners) == len(wanted) {
			break
		}
	}
	return owners
}

func (c *FDCorrelator) scanProcess(pid int, wanted map[string]bool, owners map[string]model.ProcessInfo, users map[uint32]string) {
	fdPath := filepath.Join(c.Root, strconv.Itoa(pid), "fd")
	fds, err := os.ReadDir(fdPath)
	if err != nil {
		return
	}

	var info *model.ProcessInfo
	for _, fd := range fds {
		link, err := os.Readlink(filepath.Join(fdPath, fd.Name()))
		if err != nil {
			continue
		}
		inode, ok := socketInode(link)
		if !ok || !wanted[inode] {
			continue
		}
		if _, taken := owners[inode]; taken {
			continue
		}
		if info == nil {
			p := c.describe(pid, users)
			info = &p
		}
		owners[inode] = *info
	}
}

func (c *FDCorrelator) describe(pid int, users map[uint32]string) model.ProcessInfo {
	info := model.ProcessInfo{PID: pid}

	procDir := filepath.Join(c.Root, strconv.Itoa(pid))
	if stat, err := os.ReadFile(filepath.Join(procDir, "stat")); err == nil {
		if comm, err := parseStatComm(stat); err == nil {
			info.Name = comm
		}
	}

	if fi, err := os.Stat(procDir); err == nil {
		if uid, ok := fileOwnerUID(fi); ok {
			info.User = lookupUser(uid, users)
		}
	}
	return info
}

func (c *FDCorrelator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// listPIDs returns the numeric entries of root in ascending order, so the
// lowest pid wins when several processes share a socket.
func listPIDs(root string) ([]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	slices.Sort(pids)
	return pids, nil
}

func socketInode(link string) (string, bool) {
	if !strings.HasPrefix(link, "socket:[") || !strings.HasSuffix(link, "]") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(link, "socket:["), "]"), true
}

// parseStatComm extracts the command name from /proc/<pid>/stat. The name is
// bracketed by the first "(" and the last ")" since it may itself contain
// parentheses or spaces.
func parseStatComm(stat []byte) (string, error) {
	raw := string(stat)
	open := strings.Index(raw, "(")
	close := strings.LastIndex(raw, ")")
	if open == -1 || close == -1 || close <= open {
		return "", fmt.Errorf("invalid stat format")
	}
	return raw[open+1 : close], nil
}

func lookupUser(uid uint32, cache map[uint32]string) string {
	if name, ok := cache[uid]; ok {
		return name
	}
	id := strconv.FormatUint(uint64(uid), 10)
	name := id
	if u, err := user.LookupId(id); err == nil && u.Username != "" {
		name = u.Username
	}
	cache[uid] = name
	return name
}
