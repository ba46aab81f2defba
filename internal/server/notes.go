package server

import (
	"vance/internal/common"
	"vance/internal/database/dto"

	"github.com/gofiber/fiber/v2"
)

var errForeignFavorites = &common.Error{Kind: common.ErrorForbidden, Message: "favorites of other users are private"}

func (s *FiberServer) createNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	req := dto.CreateNoteRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := s.notes.CreateNote(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "note created successfully", note)
}

func (s *FiberServer) getNotes(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	notes, err := s.notes.GetNotes(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", notes)
}

func (s *FiberServer) searchNotes(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	notes, err := s.notes.SearchNotes(c.UserContext(), userID, c.Query("q"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", notes)
}

func (s *FiberServer) updateNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	noteID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	req := dto.UpdateNoteRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := s.notes.UpdateNote(c.UserContext(), userID, noteID, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "note updated successfully", note)
}

func (s *FiberServer) deleteNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	noteID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := s.notes.DeleteNote(c.UserContext(), userID, noteID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "note deleted successfully", nil)
}

func (s *FiberServer) favoriteNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	noteID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := s.notes.FavoriteNote(c.UserContext(), userID, noteID); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "note added to favorites", nil)
}

func (s *FiberServer) getFavoriteNotes(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	requested, err := paramUUID(c, "userId")
	if err != nil {
		return err
	}
	if requested != userID {
		return errForeignFavorites
	}
	notes, err := s.notes.GetFavoriteNotes(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", notes)
}

func (s *FiberServer) shareNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	req := dto.ShareNoteRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	share, err := s.notes.ShareNote(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "note shared successfully", share)
}

func (s *FiberServer) getSharedNotes(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	notes, err := s.notes.GetSharedNotes(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", notes)
}

func (s *FiberServer) getSharedNoteUsers(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	noteID, err := paramUUID(c, "noteId")
	if err != nil {
		return err
	}
	users, err := s.notes.GetSharedNoteUsers(c.UserContext(), userID, noteID)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return respond(c, fiber.StatusOK, "note is not shared", users)
	}
	return respond(c, fiber.StatusOK, "", users)
}

func (s *FiberServer) updateNotePermission(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	req := dto.UpdatePermissionRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := s.notes.UpdateNotePermission(c.UserContext(), userID, req); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "permission updated", nil)
}

func (s *FiberServer) editSharedNote(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	noteID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	req := dto.EditSharedNoteRequest{}
	if err := parseBody(c, &req); err != nil {
		return err
	}
	note, err := s.notes.EditSharedNote(c.UserContext(), userID, noteID, req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "note updated successfully", note)
}
