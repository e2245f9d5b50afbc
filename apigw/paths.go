// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package apigw

import "github.com/jtacoma/uritemplates"

// Gateway paths, relative to Options.GatewayURL.  Forms without a
// domain are the ones the hosted gateway uses, where the domain comes
// from the caller's credentials instead of the path.
var (
	domainTemplate          = mustParse("/v1/domains{/domainId}")
	domainMetadataTemplate  = mustParse("/v1/domains/{domainId}/metadata{/metadataId}")
	gatewayMetadataTemplate = mustParse("/v1/metadata{/metadataId}")
	domainPipeTemplate      = mustParse("/v1/domains/{domainId}/privacy_pipe")
	gatewayPipeTemplate     = mustParse("/v1/privacy_pipe")
	jobsTemplate            = mustParse("/v1/domains/{domainId}/is/jobs{/jobId}")
)

func mustParse(template string) *uritemplates.UriTemplate {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// expand fills in a template.  Empty values are left out entirely, so
// an optional trailing segment disappears rather than becoming "/".
func expand(tmpl *uritemplates.UriTemplate, pairs ...string) string {
	vars := make(map[string]interface{})
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			vars[pairs[i]] = pairs[i+1]
		}
	}
	path, err := tmpl.Expand(vars)
	if err != nil {
		panic(err)
	}
	return path
}

// DomainPath returns the path of a domain, or of the domain
// collection if domainID is empty.
func DomainPath(domainID string) string {
	return expand(domainTemplate, "domainId", domainID)
}

// MetadataPath returns the path of a domain's metadata collection, or
// of one item in it if metadataID is set.  With no domainID it
// returns the gateway-level metadata path.
func MetadataPath(domainID, metadataID string) string {
	if domainID == "" {
		return expand(gatewayMetadataTemplate, "metadataId", metadataID)
	}
	return expand(domainMetadataTemplate, "domainId", domainID, "metadataId", metadataID)
}

// PrivacyPipePath returns the path privacy pipes are created at.
// With no domainID it returns the gateway-level path.
func PrivacyPipePath(domainID string) string {
	if domainID == "" {
		return expand(gatewayPipeTemplate)
	}
	return expand(domainPipeTemplate, "domainId", domainID)
}

// JobsPath returns the path of a domain's identity syndication jobs,
// or of one job if jobID is set.
func JobsPath(domainID, jobID string) string {
	return expand(jobsTemplate, "domainId", domainID, "jobId", jobID)
}
