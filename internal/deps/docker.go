package deps

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	reFrom   = regexp.MustCompile(`(?i)^FROM\s+(\S+)(?:\s+AS\s+(\w+))?`)
	reExpose = regexp.MustCompile(`(?i)^EXPOSE\s+(.+)`)
)

// Dockerfile holds the build stages and exposed ports of a Dockerfile.
type Dockerfile struct {
	Images []string // base image per FROM, in order
	Ports  []string // EXPOSE values without protocol suffix
}

// Compose lists the services of a docker-compose.yml.
type Compose struct {
	Services []Service // sorted by name
}

// Service is one compose service. Image is empty for build-only services.
type Service struct {
	Name  string
	Image string
}

func parseDockerfile(data []byte) *Dockerfile {
	d := &Dockerfile{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if m := reFrom.FindStringSubmatch(line); m != nil {
			d.Images = append(d.Images, m[1])
			continue
		}
		if m := reExpose.FindStringSubmatch(line); m != nil {
			for _, port := range strings.Fields(m[1]) {
				d.Ports = append(d.Ports, strings.Split(port, "/")[0])
			}
		}
	}
	return d
}

type composeFile struct {
	Services map[string]struct {
		Image string `yaml:"image"`
	} `yaml:"services"`
}

// parseCompose never fails: an unparseable file still counts as present.
func parseCompose(data []byte) *Compose {
	c := &Compose{}
	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return c
	}
	for name, svc := range cf.Services {
		c.Services = append(c.Services, Service{Name: name, Image: svc.Image})
	}
	sort.Slice(c.Services, func(i, j int) bool { return c.Services[i].Name < c.Services[j].Name })
	return c
}
