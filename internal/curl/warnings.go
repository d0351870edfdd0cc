package curl

import (
	"fmt"
	"strings"
)

// WarningCollector keeps unique messages in the order they were first seen.
type WarningCollector struct {
	seen map[string]struct{}
	list []string
}

func newWarningCollector() *WarningCollector {
	return &WarningCollector{}
}

func (c *WarningCollector) Add(msg string) {
	if c == nil {
		return
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[msg]; ok {
		return
	}
	c.seen[msg] = struct{}{}
	c.list = append(c.list, msg)
}

func (c *WarningCollector) Flag(flag string) {
	flag = strings.TrimSpace(flag)
	if flag == "" {
		return
	}
	c.Add(fmt.Sprintf(warnFlagFormat, flag))
}

func (c *WarningCollector) List() []string {
	if c == nil || len(c.list) == 0 {
		return nil
	}
	out := make([]string, len(c.list))
	copy(out, c.list)
	return out
}
