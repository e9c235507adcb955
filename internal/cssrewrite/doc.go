// Package cssrewrite discovers image and font references inside stylesheet
// text and rewrites them to the paths those assets are published under.
//
// Scan walks declarations with a bracket-matching scanner and returns one Ref
// per url(...) token found in background, background-image, content,
// border-image, cursor and src declarations. Rewriter resolves each Ref to a
// file under the public root, produces the nested publish Job for it and
// splices the relative public path back into the text in a single pass.
// data: URIs, external URLs and fragment-only references are left untouched.
package cssrewrite
