// Package page implements the gallery page DOM: a live Chrome tab driven over the
// DevTools protocol, and an in-memory Document used offline and in tests.
package page

// StyleElementID identifies the injected stylesheet so it is inserted once per document.
const StyleElementID = "gallery-sync-style"

// ContainerClass is set on every control container.
const ContainerClass = "buttons-container"

const stylesheet = `
.draggable .buttons-container {
  display: flex;
  flex-direction: row;
  align-items: flex-start;
  padding-left: 0;
  margin-top: 10px;
}
.draggable .buttons-container button {
  margin-right: 5px;
  min-width: 24px;
  min-height: 24px;
  border: none;
  cursor: pointer;
}
`
