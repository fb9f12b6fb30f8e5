// Command seo-checker aggregates SEO metrics from Ahrefs and SimilarWeb and
// serves them over HTTP.
package main

import "github.com/rankwatch/seo-checker/cmd"

func main() {
	cmd.Execute()
}
