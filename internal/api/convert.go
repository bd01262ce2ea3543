package api

import (
	"embyscout/internal/library"
	"embyscout/internal/pagescan"
	"embyscout/internal/registry"
	"embyscout/internal/scan"
	"embyscout/internal/search"
)

// FromBlocks converts search blocks.
func FromBlocks(keyword string, blocks []search.Block) SearchResponse {
	out := SearchResponse{Keyword: keyword, Blocks: make([]SearchBlock, 0, len(blocks))}
	for _, b := range blocks {
		out.Blocks = append(out.Blocks, FromBlock(b))
	}
	return out
}

// FromBlock converts one search block.
func FromBlock(b search.Block) SearchBlock {
	block := SearchBlock{
		ServerIndex: b.ServerIndex,
		Server:      b.Server,
		State:       string(b.State),
		ScanOffered: b.ScanOffered,
		Error:       errString(b.Err),
	}
	for _, h := range b.Hits {
		block.Hits = append(block.Hits, SearchHit{
			ID:       h.ID,
			Name:     h.Name,
			Type:     h.Type,
			Year:     h.Year,
			OpenURL:  h.OpenURL,
			ImageURL: h.ImageURL,
			Episode:  h.Episode,
		})
	}
	return block
}

// FromCheck converts a library check result.
func FromCheck(r library.Result) CheckResponse {
	return CheckResponse{
		Title:  r.Title,
		Status: string(r.Status),
		Site:   r.Site,
		Server: r.Server,
		Error:  errString(r.Err),
	}
}

// FromProgress converts a scan progress event.
func FromProgress(p scan.Progress) *ScanProgress {
	return &ScanProgress{
		Path:      p.Path,
		PathIndex: p.PathIndex,
		PathCount: p.PathCount,
		Phase:     string(p.Phase),
		Remaining: p.Remaining,
		Message:   p.Message,
	}
}

// FromServers converts the server list, hiding API keys.
func FromServers(list []registry.ServerConfig) []Server {
	out := make([]Server, 0, len(list))
	for i, s := range list {
		out = append(out, FromServer(i, s))
	}
	return out
}

// FromServer converts one server entry.
func FromServer(index int, s registry.ServerConfig) Server {
	paths := s.ScanPaths
	if paths == nil {
		paths = []string{}
	}
	return Server{
		Index:     index,
		Name:      s.Name,
		URL:       s.URL,
		HasAPIKey: s.APIKey != "",
		UseHeader: s.UseHeader,
		ScanPaths: paths,
		ServerID:  s.ServerID,
	}
}

// ToServer builds a registry entry. previous supplies the key when the input
// leaves it empty.
func (in ServerInput) ToServer(previous *registry.ServerConfig) registry.ServerConfig {
	s := registry.ServerConfig{
		Name:      in.Name,
		URL:       in.URL,
		APIKey:    in.APIKey,
		UseHeader: in.UseHeader,
		ScanPaths: in.ScanPaths,
	}
	if s.APIKey == "" && previous != nil {
		s.APIKey = previous.APIKey
	}
	return s
}

// FromSites converts the site list, resolving each binding.
func FromSites(sites []registry.SiteConfig, servers []registry.ServerConfig) []Site {
	out := make([]Site, 0, len(sites))
	for i, s := range sites {
		bound := string(library.StatusUnbound)
		if server, err := registry.ServerAt(servers, s.ServerIndex); err == nil {
			bound = server.Label()
		}
		out = append(out, Site{Index: i, Name: s.Name, URL: s.URL, ServerIndex: s.ServerIndex, Server: bound})
	}
	return out
}

// ToSite builds a registry entry.
func (in SiteInput) ToSite() registry.SiteConfig {
	return registry.SiteConfig{Name: in.Name, URL: in.URL, ServerIndex: in.ServerIndex}
}

// FromAnnotations converts page annotations.
func FromAnnotations(pageURL string, anns []pagescan.Annotation) PageScanResponse {
	out := PageScanResponse{URL: pageURL, Elements: make([]PageElement, 0, len(anns))}
	for _, a := range anns {
		out.Elements = append(out.Elements, PageElement{
			Kind:      string(a.Kind),
			Title:     a.Title,
			Raw:       a.Raw,
			Status:    string(a.Status),
			Server:    a.Server,
			HDHiveURL: a.HDHiveURL,
			Error:     errString(a.Err),
		})
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
