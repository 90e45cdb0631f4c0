// Package config loads rawhit project settings.
//
// Settings come from the first of .rawhit.yaml, .rawhit.yml, rawhit.yaml or
// .rawhit.json found in the working directory, layered over DefaultConfig.
// Every file is checked against an embedded JSON schema before use:
//
//	placeholder: "{PROMPT}"
//	strategy: json
//	parseKey: choices[0].message.content
//	timeout: 20s
//	headers:
//	  User-Agent: rawhit
package config
