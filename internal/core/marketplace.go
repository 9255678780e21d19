package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// marketplaceCatalogPath is where a repository declares its plugin catalog.
var marketplaceCatalogPath = filepath.Join(".claude-plugin", "marketplace.json")

// marketplaceKeys maps catalog resource keys to bundle categories.
var marketplaceKeys = []struct {
	key      string
	category Category
}{
	{"commands", CategoryCommands},
	{"agents", CategoryAgents},
	{"skills", CategorySkills},
	{"rules", CategoryRules},
	{"hooks", CategoryHooks},
	{"mcpServers", CategoryMCPServers},
}

type marketplaceCatalog struct {
	pluginRoot string
	plugins    []marketplacePlugin
}

type marketplacePlugin struct {
	name        string
	description string
	version     string
	author      string
	license     string
	homepage    string
	source      string

	// lists holds the resource paths the catalog names per category.
	lists map[Category][]string
	// inline holds JSON objects declared directly in the catalog, keyed by
	// the catalog key they appeared under.
	inline map[Category]string
}

func (p marketplacePlugin) declaresResources() bool {
	return len(p.lists) > 0 || len(p.inline) > 0
}

// readMarketplace loads the plugin catalog at dir. It returns nil, nil when
// dir has no catalog. The catalog may contain comments and trailing commas.
func readMarketplace(dir string) (*marketplaceCatalog, error) {
	path := filepath.Join(dir, marketplaceCatalogPath)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigReadFailed, err)
	}
	data, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseFailed, path, err)
	}
	return parseMarketplace(data)
}

func parseMarketplace(data []byte) (*marketplaceCatalog, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: marketplace catalog is not valid JSON", ErrConfigParseFailed)
	}
	root := gjson.ParseBytes(data)
	catalog := &marketplaceCatalog{pluginRoot: root.Get("metadata.pluginRoot").String()}

	for _, p := range root.Get("plugins").Array() {
		plugin := marketplacePlugin{
			name:        p.Get("name").String(),
			description: p.Get("description").String(),
			version:     p.Get("version").String(),
			license:     p.Get("license").String(),
			homepage:    p.Get("homepage").String(),
			lists:       map[Category][]string{},
			inline:      map[Category]string{},
		}
		if plugin.name == "" {
			return nil, fmt.Errorf("%w: marketplace plugin without a name", ErrConfigInvalid)
		}
		if author := p.Get("author"); author.IsObject() {
			plugin.author = author.Get("name").String()
		} else {
			plugin.author = author.String()
		}

		switch src := p.Get("source"); {
		case !src.Exists():
		case src.Type == gjson.String:
			plugin.source = src.String()
		case src.IsObject() && src.Get("path").Exists():
			plugin.source = src.Get("path").String()
		default:
			// Plugins hosted in another repository are not part of this catalog's tree.
			continue
		}

		for _, k := range marketplaceKeys {
			v := p.Get(k.key)
			switch {
			case !v.Exists():
			case v.IsObject():
				plugin.inline[k.category] = v.Raw
			case v.IsArray():
				for _, item := range v.Array() {
					plugin.lists[k.category] = append(plugin.lists[k.category], item.String())
				}
			default:
				plugin.lists[k.category] = []string{v.String()}
			}
		}
		catalog.plugins = append(catalog.plugins, plugin)
	}
	return catalog, nil
}

// synthesizePlugins materializes one bundle directory per catalog plugin
// under pluginsRoot. Directories built by an earlier call are reused as-is.
func synthesizePlugins(catalog *marketplaceCatalog, content, pluginsRoot, url, commit, ref string) ([]CachedBundle, error) {
	if err := os.MkdirAll(pluginsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}

	var out []CachedBundle
	for _, p := range catalog.plugins {
		dir := filepath.Join(pluginsRoot, sanitizeName(p.name))
		if !dirExists(dir) {
			if err := buildPluginDir(catalog, p, content, dir, qualifiedPluginName(url, p.name)); err != nil {
				return nil, err
			}
		}
		m, err := LoadBundleManifest(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, CachedBundle{Path: dir, Commit: commit, Ref: ref, Plugin: p.name, Manifest: m})
	}
	return out, nil
}

func qualifiedPluginName(url, plugin string) string {
	if owner, repo, ok := repoSlug(url); ok {
		return "@" + owner + "/" + repo + "/" + plugin
	}
	return plugin
}

func buildPluginDir(catalog *marketplaceCatalog, p marketplacePlugin, content, dest, name string) error {
	tmp, err := os.MkdirTemp(filepath.Dir(dest), ".synth-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	sourceDir, err := containedJoin(content, filepath.Join(catalog.pluginRoot, p.source))
	if err != nil {
		return fmt.Errorf("plugin %q: %w", p.name, err)
	}
	if !dirExists(sourceDir) {
		return fmt.Errorf("%w: plugin %q source %q does not exist", ErrBundleNotFound, p.name, p.source)
	}

	if p.declaresResources() {
		if err := copyListedResources(p, content, sourceDir, tmp); err != nil {
			return err
		}
	} else if err := copyConventionalResources(p, sourceDir, tmp); err != nil {
		return err
	}

	m := &Manifest{
		Name:        name,
		Description: p.description,
		Version:     p.version,
		Author:      p.author,
		License:     p.license,
		Homepage:    p.homepage,
	}
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, manifestFileName), data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}

	if err := os.Rename(tmp, dest); err != nil && !dirExists(dest) {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	return nil
}

func copyListedResources(p marketplacePlugin, content, sourceDir, dest string) error {
	for _, k := range marketplaceKeys {
		catDir := filepath.Join(dest, string(k.category))
		for _, rel := range p.lists[k.category] {
			src := filepath.Join(sourceDir, filepath.FromSlash(rel))
			if !within(content, src) {
				return fmt.Errorf("%w: plugin %q lists %q outside the repository", ErrBundleValidationFailed, p.name, rel)
			}
			info, err := os.Stat(src)
			if err != nil {
				return fmt.Errorf("%w: plugin %q lists %q: %v", ErrBundleNotFound, p.name, rel, err)
			}
			target := filepath.Join(catDir, filepath.Base(src))
			if info.IsDir() && filepath.Base(src) == string(k.category) {
				target = catDir
			}
			if info.IsDir() {
				err = copyDirectory(src, target)
			} else {
				err = copyFile(src, target)
			}
			if err != nil {
				return fmt.Errorf("%w: plugin %q: copying %s: %v", ErrCacheOperationFailed, p.name, rel, err)
			}
		}
		if raw, ok := p.inline[k.category]; ok {
			if err := writeInlineResource(p.name, k.key, raw, catDir); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyConventionalResources copies the category directories a plugin keeps
// at its root when the catalog lists nothing explicitly.
func copyConventionalResources(p marketplacePlugin, sourceDir, dest string) error {
	for _, cat := range []Category{CategoryCommands, CategoryAgents, CategorySkills, CategoryRules, CategoryHooks} {
		src := filepath.Join(sourceDir, string(cat))
		if !dirExists(src) {
			continue
		}
		if err := copyDirectory(src, filepath.Join(dest, string(cat))); err != nil {
			return fmt.Errorf("%w: plugin %q: copying %s: %v", ErrCacheOperationFailed, p.name, cat, err)
		}
	}
	if mcp := filepath.Join(sourceDir, ".mcp.json"); fileExists(mcp) {
		target := filepath.Join(dest, string(CategoryMCPServers), sanitizeName(p.name)+".json")
		if err := copyFile(mcp, target); err != nil {
			return fmt.Errorf("%w: plugin %q: copying .mcp.json: %v", ErrCacheOperationFailed, p.name, err)
		}
	}
	return nil
}

// writeInlineResource stores a JSON object declared inside the catalog as
// {"<key>": <object>} in catDir.
func writeInlineResource(plugin, key, raw, catDir string) error {
	doc, err := sjson.SetRaw("{}", key, raw)
	if err != nil {
		return fmt.Errorf("%w: plugin %q: %s: %v", ErrConfigInvalid, plugin, key, err)
	}
	formatted, err := hujson.Format([]byte(doc))
	if err != nil {
		return fmt.Errorf("%w: plugin %q: %s: %v", ErrConfigInvalid, plugin, key, err)
	}
	if err := os.MkdirAll(catDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	path := filepath.Join(catDir, sanitizeName(plugin)+".json")
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheOperationFailed, err)
	}
	return nil
}

// containedJoin joins rel onto root and rejects results outside root.
func containedJoin(root, rel string) (string, error) {
	joined := filepath.Join(root, rel)
	if !within(root, joined) {
		return "", fmt.Errorf("%w: path %q escapes %s", ErrBundleValidationFailed, rel, root)
	}
	return joined, nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	r, err := filepath.Rel(root, path)
	return err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}
