package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jonwraymond/postboard/actions"
	"github.com/jonwraymond/postboard/auth"
	"github.com/jonwraymond/postboard/queries"
	"github.com/jonwraymond/postboard/store"
	"github.com/jonwraymond/postboard/tags"
)

// Largest page a client may request.
const maxPageSize = 100

func actorFrom(r *http.Request) actions.Actor {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		return actions.Actor{}
	}
	return actions.Actor{ID: id.UserID, Role: id.Role}
}

func postsPageTags(*http.Request) []tags.Tag {
	return []tags.Tag{tags.Path("/posts"), tags.Posts}
}

func postPageTags(r *http.Request) []tags.Tag {
	id := chi.URLParam(r, "id")
	return []tags.Tag{tags.Path("/posts/" + id), tags.Post(id), tags.PostComments(id)}
}

var errBadQuery = errors.New("invalid query parameter")

func intParam(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > max {
		return 0, fmt.Errorf("%w: %s", errBadQuery, name)
	}
	return n, nil
}

func (s *Server) badQuery(w http.ResponseWriter, err error) {
	fail(w, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
}

// listPosts serves GET /api/posts. Drafts are visible only to admins and to
// the author listing their own posts; everyone else gets published posts.
func (s *Server) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := queries.PostsFilter{
		CategoryID: q.Get("category"),
		AuthorID:   q.Get("author"),
	}

	var err error
	if f.Limit, err = intParam(r, "limit", queries.DefaultLimit, maxPageSize); err != nil {
		s.badQuery(w, err)
		return
	}
	if f.Offset, err = intParam(r, "offset", 0, 1<<20); err != nil {
		s.badQuery(w, err)
		return
	}

	switch q.Get("published") {
	case "", "true":
		published := true
		f.Published = &published
	case "false":
		published := false
		f.Published = &published
	case "all":
	default:
		s.badQuery(w, fmt.Errorf("%w: published", errBadQuery))
		return
	}

	actor := actorFrom(r)
	if f.Published == nil || !*f.Published {
		if actor.Role != store.RoleAdmin && (actor.ID == "" || f.AuthorID != actor.ID) {
			published := true
			f.Published = &published
		}
	}

	posts, err := s.deps.Queries.Posts(f).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if posts == nil {
		posts = []store.PostSummary{}
	}
	ok(w, http.StatusOK, posts, "")
}

func canSeePost(actor actions.Actor, published bool, authorID string) bool {
	return published || actor.Role == store.RoleAdmin || (actor.ID != "" && actor.ID == authorID)
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Queries.Post(chi.URLParam(r, "id")).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if detail == nil || !canSeePost(actorFrom(r), detail.Published, detail.Author.ID) {
		s.writeError(w, r, actions.ErrNotFound)
		return
	}
	ok(w, http.StatusOK, detail, "")
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	detail, err := s.deps.Queries.Post(id).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if detail == nil || !canSeePost(actorFrom(r), detail.Published, detail.Author.ID) {
		s.writeError(w, r, actions.ErrNotFound)
		return
	}

	comments, err := s.deps.Queries.Comments(id).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []store.CommentView{}
	}
	ok(w, http.StatusOK, comments, "")
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	var in actions.PostInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.deps.Actions.CreatePost(r.Context(), actorFrom(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, post, "post created")
}

func (s *Server) updatePost(w http.ResponseWriter, r *http.Request) {
	var in actions.PostInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	post, err := s.deps.Actions.UpdatePost(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, post, "post updated")
}

func (s *Server) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Actions.DeletePost(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "post deleted")
}

func (s *Server) togglePublish(w http.ResponseWriter, r *http.Request) {
	post, err := s.deps.Actions.TogglePublish(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, post, "")
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	var in actions.CommentInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.PostID = chi.URLParam(r, "id")

	comment, err := s.deps.Actions.CreateComment(r.Context(), actorFrom(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusCreated, comment, "comment created")
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	var in actions.CommentUpdate
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	comment, err := s.deps.Actions.UpdateComment(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, comment, "comment updated")
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Actions.DeleteComment(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "comment deleted")
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", queries.DefaultLimit, maxPageSize)
	if err != nil {
		s.badQuery(w, err)
		return
	}
	offset, err := intParam(r, "offset", 0, 1<<20)
	if err != nil {
		s.badQuery(w, err)
		return
	}

	users, err := s.deps.Queries.Users(limit, offset).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []store.UserProfile{}
	}
	ok(w, http.StatusOK, users, "")
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request, id string, status int, message string) {
	p, err := s.deps.Queries.User(id).Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if p == nil {
		s.writeError(w, r, actions.ErrNotFound)
		return
	}
	ok(w, status, p, message)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.profile(w, r, chi.URLParam(r, "id"), http.StatusOK, "")
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	s.profile(w, r, actorFrom(r).ID, http.StatusOK, "")
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var in actions.UserInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	actor := actorFrom(r)
	if _, err := s.deps.Actions.UpdateUser(r.Context(), actor, in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.profile(w, r, actor.ID, http.StatusOK, "profile updated")
}

func (s *Server) deleteMe(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Actions.DeleteUser(r.Context(), actorFrom(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "account deleted")
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var in actions.PasswordInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Actions.ChangePassword(r.Context(), actorFrom(r), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, "password changed")
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Actions.ListRoles(r.Context(), actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []store.UserProfile{}
	}
	ok(w, http.StatusOK, users, "")
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	var in actions.RoleInput
	if err := decode(r, w, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Actions.UpdateRole(r.Context(), actorFrom(r), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.profile(w, r, in.UserID, http.StatusOK, "role updated")
}
