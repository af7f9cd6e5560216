// Package rules contains the built-in nag rules.
// Import this package to register all rules via their init() functions.
//
// Rule IDs prefixed AwsSolutions- follow the AWS Solutions rule pack so
// suppressions written against it carry over. ImageFreight- rules check
// properties specific to image build pipelines.
package rules
