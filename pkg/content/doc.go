// Package content provides the shared domain types for quill: channels, source
// document categories, the per-channel content union, judge verdicts and the
// immutable per-channel result snapshot.
//
// # Overview
//
// A run takes one Topic (a folder of categorised source documents) and produces
// one ChannelResult per requested Channel. Each channel is driven through a
// Generate → Judge → Refine loop; the ChannelResult records the final content,
// the verdict that judged it and the full history that led there.
//
// # Content Union
//
// Content is a closed sum type. Each channel has exactly one concrete shape:
//
//	linkedin   → *LinkedInPost     {content, hashtags}
//	newsletter → *NewsletterEmail  {subject_line, body}
//	blog       → *BlogPost         {title, content}
//
// ParseContent decodes strictly: unknown fields, missing required fields and
// mistyped fields are rejected with a *ValidationError.
//
// # Usage Example
//
//	c, err := content.ParseContent(content.ChannelLinkedIn, raw)
//	if err != nil {
//		var verr *content.ValidationError
//		if errors.As(err, &verr) {
//			log.Printf("bad %s output: %v", verr.Channel, verr)
//		}
//		return err
//	}
//
//	post := c.(*content.LinkedInPost)
//	fmt.Println(post.Content, post.Hashtags)
//
// # Error Taxonomy
//
// StageError covers generation, judge and refine failures and matches the
// sentinels ErrGeneration, ErrJudge and ErrRefine via errors.Is.
// DocumentStoreError aborts a run before any channel starts. AggregationError
// marks a run failed after all channel results are in.
package content
